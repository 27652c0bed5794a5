package detect

import (
	"fmt"
	"log"
	"path/filepath"

	"github.com/janekbaraniewski/cursor-monitor/internal/core"
)

const stateDBName = "state.vscdb"

// ResolveStateDB derives the state.vscdb path for a channel. It does no I/O.
//
//	windows: {appData}/<product>/User/globalStorage/state.vscdb
//	darwin:  {home}/Library/Application Support/<product>/User/globalStorage/state.vscdb
//	linux:   {home}/.config/<product>/User/globalStorage/state.vscdb
//
// where <product> is "Cursor" or "Cursor Nightly".
func ResolveStateDB(ch core.Channel, goos, homeDir, appDataDir string) (string, error) {
	var root string
	switch goos {
	case "windows":
		root = appDataDir
		if root == "" {
			root = filepath.Join(homeDir, "AppData", "Roaming")
		}
	case "darwin":
		root = filepath.Join(homeDir, "Library", "Application Support")
	case "linux":
		root = filepath.Join(homeDir, ".config")
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnsupportedPlatform, goos)
	}
	return filepath.Join(root, ch.ProductDir(), "User", "globalStorage", stateDBName), nil
}

// Locate resolves the state database for ch and checks whether it exists.
func Locate(env Env, ch core.Channel) (core.DBLocation, error) {
	path, err := ResolveStateDB(ch, env.GOOS, env.HomeDir, env.AppData)
	if err != nil {
		return core.DBLocation{}, err
	}
	loc := core.DBLocation{Path: path, Channel: ch, Exists: fileExists(path)}
	log.Printf("[detect] %s state DB at %s (exists=%v)", ch.DisplayName(), path, loc.Exists)
	return loc, nil
}
