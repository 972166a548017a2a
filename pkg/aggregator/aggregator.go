// Package aggregator turns a high-frequency stream of page change events
// into debounced, size-bounded DOM_CHANGED batches, each followed by a full
// PAGE_SCRAPED snapshot of the page.
package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/grovetools/sessionlink/logging"
	"github.com/grovetools/sessionlink/pkg/metrics"
	"github.com/grovetools/sessionlink/pkg/profiling"
	"github.com/grovetools/sessionlink/pkg/protocol"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Sender accepts outbound messages; a bridge satisfies it.
type Sender interface {
	Send(m protocol.Message) bool
}

// Page reports the current page identity and its full content.
type Page interface {
	URL() string
	Snapshot(ctx context.Context) (protocol.PageScraped, error)
}

type Config struct {
	// DebounceWindow is the quiet period after the last record before a
	// batch is emitted.
	DebounceWindow time.Duration
	// MaxRecords caps a batch; the oldest records are dropped beyond it.
	MaxRecords int
	// MaxNodePaths caps added and removed node paths per record.
	MaxNodePaths int
	IgnoreTags   []string
	IgnorePaths  []string
	// Coalesce merges consecutive attribute or text changes on one target.
	Coalesce bool
}

func DefaultConfig() Config {
	return Config{
		DebounceWindow: 500 * time.Millisecond,
		MaxRecords:     100,
		MaxNodePaths:   10,
		IgnoreTags:     DefaultIgnoreTags,
	}
}

type Option func(*Aggregator)

func WithConfig(cfg Config) Option {
	return func(a *Aggregator) { a.cfg = cfg }
}

func WithClock(clock clockwork.Clock) Option {
	return func(a *Aggregator) { a.clock = clock }
}

func WithLogger(log *logrus.Entry) Option {
	return func(a *Aggregator) { a.log = log }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(a *Aggregator) { a.metrics = m }
}

type Aggregator struct {
	sender  Sender
	page    Page
	cfg     Config
	filter  *Filter
	clock   clockwork.Clock
	log     *logrus.Entry
	metrics *metrics.Collector

	mu      sync.Mutex
	pending []protocol.ChangeRecord
	timer   clockwork.Timer
	gen     uint64
	ctx     context.Context
	cancel  func()
}

func New(sender Sender, page Page, opts ...Option) (*Aggregator, error) {
	a := &Aggregator{
		sender: sender,
		page:   page,
		cfg:    DefaultConfig(),
		clock:  clockwork.NewRealClock(),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logging.NewLogger("aggregator")
	}
	filter, err := NewFilter(a.cfg.IgnoreTags, a.cfg.IgnorePaths)
	if err != nil {
		return nil, err
	}
	a.filter = filter
	return a, nil
}

// Start sends the initial snapshot and subscribes to src. ctx bounds the
// snapshots taken while observing.
func (a *Aggregator) Start(ctx context.Context, src Source) {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()

	a.sendSnapshot(ctx)
	cancel := src.Subscribe(a.Observe)

	a.mu.Lock()
	a.cancel = cancel
	a.mu.Unlock()
	a.log.Debug("Observing page changes")
}

// Stop unsubscribes and flushes whatever is pending.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	a.Flush()
}

// Observe feeds one raw event through filter, conversion and the batch cap,
// and re-arms the debounce timer.
func (a *Aggregator) Observe(ev Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	// The pattern matcher compiles lazily and is not safe for concurrent use.
	if !a.filter.Accept(ev) {
		return
	}
	rec := Convert(ev, a.cfg.MaxNodePaths)
	a.pending = append(a.pending, rec)
	if max := a.cfg.MaxRecords; max > 0 && len(a.pending) > max {
		dropped := len(a.pending) - max
		a.pending = append(a.pending[:0:0], a.pending[dropped:]...)
		a.metrics.Dropped(dropped)
	}

	a.gen++
	gen := a.gen
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = a.clock.AfterFunc(a.cfg.DebounceWindow, func() { a.fire(gen) })
}

// Pending is the number of records waiting for the next batch.
func (a *Aggregator) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

// Flush emits the pending batch now, if there is one.
func (a *Aggregator) Flush() {
	a.mu.Lock()
	a.gen++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	batch, ctx := a.takeLocked()
	a.mu.Unlock()
	a.emit(ctx, batch)
}

func (a *Aggregator) fire(gen uint64) {
	a.mu.Lock()
	if gen != a.gen {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	batch, ctx := a.takeLocked()
	a.mu.Unlock()
	a.emit(ctx, batch)
}

func (a *Aggregator) takeLocked() ([]protocol.ChangeRecord, context.Context) {
	batch := a.pending
	a.pending = nil
	return batch, a.ctx
}

func (a *Aggregator) emit(ctx context.Context, batch []protocol.ChangeRecord) {
	if len(batch) == 0 {
		return
	}
	defer profiling.Start("aggregator.emit").Stop()
	if a.cfg.Coalesce {
		batch = coalesce(batch)
	}

	msg := protocol.DomChanged{
		URL:       a.page.URL(),
		Changes:   batch,
		Timestamp: protocol.Now(a.clock.Now()),
	}
	sent := a.sender.Send(msg)
	a.metrics.Batch(len(batch))
	a.log.WithFields(logrus.Fields{"records": len(batch), "sent": sent}).Debug("Emitted change batch")

	a.sendSnapshot(ctx)
}

func (a *Aggregator) sendSnapshot(ctx context.Context) {
	snap, err := a.page.Snapshot(ctx)
	if err != nil {
		a.log.WithError(err).Warn("Snapshot failed")
		return
	}
	a.sender.Send(snap)
}
