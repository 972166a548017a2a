package source

import (
	"encoding/json"
	"io"
	stdlog "log"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/grovetools/sessionlink/logging"
	"github.com/grovetools/sessionlink/pkg/aggregator"
	"github.com/hpcloud/tail"
	"github.com/sirupsen/logrus"
)

// Tail follows a file of JSON lines, one aggregator.Event per line, and
// delivers each decoded event. Lines that do not decode are logged and
// skipped.
type Tail struct {
	Path string
	// FromStart replays lines already in the file.
	FromStart bool
	// Poll watches by polling instead of inotify.
	Poll bool

	log *logrus.Entry
}

func NewTail(path string) *Tail {
	return &Tail{Path: path, log: logging.NewLogger("source")}
}

func (t *Tail) Subscribe(fn func(aggregator.Event)) func() {
	whence := io.SeekEnd
	if t.FromStart {
		whence = io.SeekStart
	}
	tf, err := tail.TailFile(t.Path, tail.Config{
		Follow:   true,
		ReOpen:   true,
		Poll:     t.Poll,
		Location: &tail.SeekInfo{Offset: 0, Whence: whence},
		Logger:   stdlog.New(io.Discard, "", 0),
	})
	if err != nil {
		t.log.WithError(err).WithField("path", t.Path).Error("Cannot tail event file")
		return func() {}
	}

	var stopped atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		for line := range tf.Lines {
			if stopped.Load() {
				continue
			}
			if line.Err != nil {
				t.log.WithError(line.Err).Debug("Error reading event line")
				continue
			}
			text := strings.TrimSpace(line.Text)
			if text == "" {
				continue
			}
			var ev aggregator.Event
			if err := json.Unmarshal([]byte(text), &ev); err != nil {
				t.log.WithError(err).Warn("Skipping malformed event line")
				continue
			}
			fn(ev)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stopped.Store(true)
			if err := tf.Stop(); err != nil {
				t.log.WithError(err).Debug("Tail stopped")
			}
			tf.Cleanup()
			<-done
		})
	}
}
