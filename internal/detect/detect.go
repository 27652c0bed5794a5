// Package detect locates the Cursor state database on the workstation and
// negotiates which installed channel (stable or nightly) to read it from.
package detect

import (
	"os"
	"runtime"
)

// Env captures the host facts path resolution depends on.
type Env struct {
	GOOS    string
	HomeDir string
	AppData string
}

// HostEnv returns the Env of the running process.
func HostEnv() Env {
	return Env{
		GOOS:    runtime.GOOS,
		HomeDir: homeDir(),
		AppData: os.Getenv("APPDATA"),
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	h, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return h
}

// fileExists checks if a file exists.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
