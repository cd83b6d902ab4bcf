package session

import (
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/HendryAvila/braintree/internal/logging"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher notices filesystem activity on the active document's file.
//
// It watches the whole data directory because saves replace the file by
// rename, which would orphan a watch on the file itself. An event only
// marks the file as "worth re-checking"; the session decides whether the
// content really changed by comparing fingerprints, so events caused by our
// own saves are harmless.
type Watcher struct {
	fw      *fsnotify.Watcher
	logger  *zap.Logger
	mu      sync.Mutex
	target  string
	pending atomic.Bool
	done    chan struct{}
}

// NewWatcher starts watching dir, which must exist.
func NewWatcher(dir string, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{fw: fw, logger: logging.OrNop(logger), done: make(chan struct{})}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.mu.Lock()
			hit := w.target != "" && filepath.Clean(ev.Name) == w.target
			w.mu.Unlock()
			if hit {
				w.pending.Store(true)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

// Track switches the watched document file and clears any pending flag.
func (w *Watcher) Track(path string) {
	w.mu.Lock()
	w.target = filepath.Clean(path)
	w.mu.Unlock()
	w.pending.Store(false)
}

// TakePending reports whether the tracked file saw activity since the last
// call, and resets the flag.
func (w *Watcher) TakePending() bool {
	return w.pending.Swap(false)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	err := w.fw.Close()
	<-w.done
	return err
}
