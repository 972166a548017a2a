package source

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/sessionlink/logging"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// PageWatcher calls OnChange once a burst of writes to a page file settles.
// It watches the parent directory so that editors which replace the file are
// still seen.
type PageWatcher struct {
	path     string
	debounce time.Duration
	onChange func()
	clock    clockwork.Clock
	logger   *logrus.Entry

	mu    sync.Mutex
	timer clockwork.Timer
}

func NewPageWatcher(path string, debounce time.Duration, onChange func(), clock clockwork.Clock) *PageWatcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if debounce <= 0 {
		debounce = 100 * time.Millisecond
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	return &PageWatcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		onChange: onChange,
		clock:    clock,
		logger:   logging.NewLogger("page-watcher"),
	}
}

// Run watches until ctx is cancelled.
func (w *PageWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	w.logger.WithField("path", w.path).Debug("Watching page file")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)
				w.schedule()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Errorf("Watcher error: %v", err)
		case <-ctx.Done():
			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
				w.timer = nil
			}
			w.mu.Unlock()
			return nil
		}
	}
}

func (w *PageWatcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = w.clock.AfterFunc(w.debounce, w.onChange)
}
