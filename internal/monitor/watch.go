package monitor

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 500 * time.Millisecond

// Watcher re-collects whenever the state database changes on disk, and
// additionally every Interval when it is positive.
type Watcher struct {
	Path     string
	Interval time.Duration
	Debounce time.Duration
	Collect  func(ctx context.Context) (Report, error)
	OnUpdate func(Report, error)
}

// Run collects once, then keeps collecting on database writes until ctx is
// done. When the database directory cannot be watched it falls back to
// polling on Interval.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	events, errs := fw.Events, fw.Errors
	if err := fw.Add(filepath.Dir(w.Path)); err != nil {
		log.Printf("[monitor] cannot watch %s, polling only: %v", filepath.Dir(w.Path), err)
		events, errs = nil, nil
	}

	w.refresh(ctx)

	var tick <-chan time.Time
	if w.Interval > 0 {
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	var pending *time.Timer
	var fire <-chan time.Time
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Println("[monitor] watch cancelled")
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.NewTimer(w.debounce())
			fire = pending.C
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			log.Printf("[monitor] watch error: %v", err)
		case <-fire:
			fire = nil
			w.refresh(ctx)
		case <-tick:
			w.refresh(ctx)
		}
	}
}

// relevant matches writes to the database and its -wal/-journal siblings.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return false
	}
	return strings.HasPrefix(filepath.Base(ev.Name), filepath.Base(w.Path))
}

func (w *Watcher) refresh(ctx context.Context) {
	report, err := w.Collect(ctx)
	if w.OnUpdate != nil {
		w.OnUpdate(report, err)
	}
}

func (w *Watcher) debounce() time.Duration {
	if w.Debounce > 0 {
		return w.Debounce
	}
	return DefaultDebounce
}
