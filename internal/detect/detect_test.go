package detect

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/janekbaraniewski/cursor-monitor/internal/core"
)

func TestResolveStateDB(t *testing.T) {
	tests := []struct {
		goos    string
		channel core.Channel
		want    string
	}{
		{"windows", core.ChannelStable, filepath.Join("/appdata", "Cursor", "User", "globalStorage", "state.vscdb")},
		{"windows", core.ChannelNightly, filepath.Join("/appdata", "Cursor Nightly", "User", "globalStorage", "state.vscdb")},
		{"darwin", core.ChannelStable, filepath.Join("/home/u", "Library", "Application Support", "Cursor", "User", "globalStorage", "state.vscdb")},
		{"darwin", core.ChannelNightly, filepath.Join("/home/u", "Library", "Application Support", "Cursor Nightly", "User", "globalStorage", "state.vscdb")},
		{"linux", core.ChannelStable, filepath.Join("/home/u", ".config", "Cursor", "User", "globalStorage", "state.vscdb")},
		{"linux", core.ChannelNightly, filepath.Join("/home/u", ".config", "Cursor Nightly", "User", "globalStorage", "state.vscdb")},
	}

	for _, tt := range tests {
		t.Run(tt.goos+"/"+tt.channel.String(), func(t *testing.T) {
			got, err := ResolveStateDB(tt.channel, tt.goos, "/home/u", "/appdata")
			if err != nil {
				t.Fatalf("ResolveStateDB() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveStateDB() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveStateDB_ProductSegmentMatchesChannel(t *testing.T) {
	for _, goos := range []string{"windows", "darwin", "linux"} {
		for _, ch := range []core.Channel{core.ChannelStable, core.ChannelNightly} {
			path, err := ResolveStateDB(ch, goos, "/home/u", "/appdata")
			if err != nil {
				t.Fatalf("%s/%s: %v", goos, ch, err)
			}
			var products []string
			for _, seg := range strings.Split(filepath.ToSlash(path), "/") {
				if seg == "Cursor" || seg == "Cursor Nightly" {
					products = append(products, seg)
				}
			}
			if len(products) != 1 || products[0] != ch.ProductDir() {
				t.Errorf("%s/%s: product segments %v, want [%s]", goos, ch, products, ch.ProductDir())
			}
		}
	}
}

func TestResolveStateDB_WindowsWithoutAppData(t *testing.T) {
	got, err := ResolveStateDB(core.ChannelStable, "windows", "/home/u", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join("/home/u", "AppData", "Roaming", "Cursor", "User", "globalStorage", "state.vscdb")
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestResolveStateDB_UnsupportedPlatform(t *testing.T) {
	for _, goos := range []string{"freebsd", "plan9", ""} {
		_, err := ResolveStateDB(core.ChannelStable, goos, "/home/u", "/appdata")
		if !errors.Is(err, core.ErrUnsupportedPlatform) {
			t.Errorf("ResolveStateDB(%q) err = %v, want ErrUnsupportedPlatform", goos, err)
		}
	}
}

func TestLocate_Exists(t *testing.T) {
	home := t.TempDir()
	env := Env{GOOS: "linux", HomeDir: home}

	loc, err := Locate(env, core.ChannelNightly)
	if err != nil {
		t.Fatalf("Locate() error: %v", err)
	}
	if loc.Exists {
		t.Fatal("expected missing state DB")
	}

	if err := os.MkdirAll(filepath.Dir(loc.Path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(loc.Path, nil, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	loc, err = Locate(env, core.ChannelNightly)
	if err != nil {
		t.Fatalf("Locate() error: %v", err)
	}
	if !loc.Exists || loc.Channel != core.ChannelNightly {
		t.Errorf("unexpected location %+v", loc)
	}
}
