// Package fsnotify implements the ports.Watcher interface using github.com/fsnotify/fsnotify.
// It watches the directory holding a keyword file, filters events down to that
// one file, and debounces bursts (editors often write, chmod, and rename per
// save) so a single save triggers a single rebuild.
package fsnotify

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/corey/keyspot/internal/ports"
)

var _ ports.Watcher = (*Watcher)(nil)

// DefaultDebounce is the quiet period after the last event before onChange fires.
const DefaultDebounce = 100 * time.Millisecond

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fw       *fsnotify.Watcher
	debounce time.Duration
	log      logrus.FieldLogger

	mu       sync.Mutex
	timer    *time.Timer
	done     chan struct{}
	stopped  bool
	started  bool
	inflight sync.WaitGroup // running onChange callbacks
}

// NewWatcher creates a new file watcher. A debounce of zero uses DefaultDebounce.
func NewWatcher(debounce time.Duration, log logrus.FieldLogger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Watcher{
		fw:       fw,
		debounce: debounce,
		log:      log,
		done:     make(chan struct{}),
	}, nil
}

// Watch starts monitoring filePath. onChange is called with the absolute
// path once events for the file have been quiet for the debounce interval.
func (w *Watcher) Watch(filePath string, onChange func(filePath string)) error {
	target, err := filepath.Abs(filePath)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return fmt.Errorf("watcher stopped")
	}
	if w.started {
		return fmt.Errorf("watcher already watching")
	}

	// Watch the parent: editors that save via rename replace the inode, and
	// a watch on the file itself would be lost.
	if err := w.fw.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	w.started = true

	go w.loop(target, onChange)
	return nil
}

func (w *Watcher) loop(target string, onChange func(string)) {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.log.WithField("op", event.Op.String()).Debug("keyword file event")
			w.schedule(target, onChange)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			// fsnotify recovers on its own; surface it for diagnosis only.
			w.log.WithError(err).Warn("file watcher error")

		case <-w.done:
			return
		}
	}
}

// schedule (re)arms the debounce timer.
func (w *Watcher) schedule(target string, onChange func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			return
		}
		w.inflight.Add(1)
		w.mu.Unlock()

		defer w.inflight.Done()
		onChange(target)
	})
}

// Stop ends monitoring and releases all resources. It waits for a callback
// already running to return, so no onChange is in progress once Stop returns.
// Must not be called from onChange. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	close(w.done)
	err := w.fw.Close()
	w.mu.Unlock()

	w.inflight.Wait()
	return err
}
