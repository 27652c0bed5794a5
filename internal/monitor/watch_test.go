package monitor

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestWatcher_Relevant(t *testing.T) {
	w := &Watcher{Path: "/home/dev/.config/Cursor/User/globalStorage/state.vscdb"}
	dir := filepath.Dir(w.Path)

	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"db write", fsnotify.Event{Name: filepath.Join(dir, "state.vscdb"), Op: fsnotify.Write}, true},
		{"wal write", fsnotify.Event{Name: filepath.Join(dir, "state.vscdb-wal"), Op: fsnotify.Write}, true},
		{"journal create", fsnotify.Event{Name: filepath.Join(dir, "state.vscdb-journal"), Op: fsnotify.Create}, true},
		{"chmod only", fsnotify.Event{Name: filepath.Join(dir, "state.vscdb"), Op: fsnotify.Chmod}, false},
		{"other file", fsnotify.Event{Name: filepath.Join(dir, "storage.json"), Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.relevant(tt.ev); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.ev, got, tt.want)
			}
		})
	}
}

func TestWatcher_RefreshesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.vscdb")
	if err := os.WriteFile(path, []byte("v1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var calls atomic.Int32
	updates := make(chan error, 8)
	w := &Watcher{
		Path:     path,
		Debounce: 20 * time.Millisecond,
		Collect: func(context.Context) (Report, error) {
			calls.Add(1)
			return Report{}, nil
		},
		OnUpdate: func(_ Report, err error) { updates <- err },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case <-updates:
	case <-time.After(5 * time.Second):
		t.Fatal("no initial collection")
	}

	// Several writes in quick succession coalesce into one refresh.
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	select {
	case <-updates:
	case <-time.After(5 * time.Second):
		t.Fatal("write did not trigger a refresh")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if calls.Load() < 2 {
		t.Errorf("collect calls = %d, want at least 2", calls.Load())
	}
}

func TestWatcher_PollsWhenDirectoryMissing(t *testing.T) {
	var calls atomic.Int32
	w := &Watcher{
		Path:     filepath.Join(t.TempDir(), "missing", "state.vscdb"),
		Interval: 10 * time.Millisecond,
		Collect: func(context.Context) (Report, error) {
			calls.Add(1)
			return Report{}, nil
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := w.Run(ctx); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if calls.Load() < 2 {
		t.Errorf("collect calls = %d, want polling to continue", calls.Load())
	}
}
