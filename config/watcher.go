package config

import (
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/tesceneio/tes/internal/logging"
)

// Watcher reloads a Settings document from disk whenever it changes,
// grounded on engine/assets/assets.go's fsnotify watcher goroutine: one
// long-lived goroutine selects on fsnotify events/errors and a done
// channel, the way AssetManager.start does. A data-source thread
// consults Current() at the top of whatever it's about to do with a
// setting, rather than blocking on the watcher goroutine — the whole
// point of atomic.Pointer here is that the hot path never takes a lock.
type Watcher struct {
	path string
	lg   logging.Logger

	current atomic.Pointer[Settings]
	fsw     *fsnotify.Watcher
	done    chan struct{}
}

// NewWatcher loads path once synchronously, then starts watching it for
// further changes in a background goroutine.
func NewWatcher(path string) (*Watcher, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{path: path, lg: logging.Default(), fsw: fsw, done: make(chan struct{})}
	w.current.Store(&s)
	go w.run()
	return w, nil
}

// Current returns the most recently loaded Settings. Safe to call from
// any goroutine without blocking on the watcher.
func (w *Watcher) Current() Settings {
	return *w.current.Load()
}

// Close stops the watcher goroutine and releases the underlying
// fsnotify watch.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case e, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			s, err := Load(w.path)
			if err != nil {
				w.lg.Warnf("config: reload %s failed, keeping previous settings: %v", w.path, err)
				continue
			}
			w.current.Store(&s)
			w.lg.Infof("config: reloaded %s", w.path)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.lg.Warnf("config: watch error on %s: %v", w.path, err)
		case <-w.done:
			return
		}
	}
}
