// Package session wires a bridge, an aggregator and a recorder into one
// browsing session that talks to a native host.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/grovetools/sessionlink/config"
	lerrors "github.com/grovetools/sessionlink/errors"
	"github.com/grovetools/sessionlink/logging"
	"github.com/grovetools/sessionlink/pkg/aggregator"
	"github.com/grovetools/sessionlink/pkg/bridge"
	"github.com/grovetools/sessionlink/pkg/metrics"
	"github.com/grovetools/sessionlink/pkg/protocol"
	"github.com/grovetools/sessionlink/pkg/recorder"
	"github.com/grovetools/sessionlink/pkg/transport"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Host commands handled by the session itself.
const (
	ActionScrape      = "scrape"
	ActionSaveSession = "save_session"
	ActionPing        = "ping"
)

type Option func(*Session)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Session) { s.clock = clock }
}

func WithLogger(log *logrus.Entry) Option {
	return func(s *Session) { s.log = log }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(s *Session) { s.metrics = m }
}

func WithValidator(v bridge.Validator) Option {
	return func(s *Session) { s.validator = v }
}

// WithID fixes the session id instead of generating one.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

type Session struct {
	bridge   *bridge.Bridge
	recorder *recorder.Recorder
	agg      *aggregator.Aggregator

	clock     clockwork.Clock
	log       *logrus.Entry
	metrics   *metrics.Collector
	validator bridge.Validator
	id        string

	mu      sync.Mutex
	ctx     context.Context
	started bool
	unsub   []func()
}

func New(cfg *config.Config, t transport.Transport, ex recorder.Extractor, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Session{
		clock: clockwork.NewRealClock(),
		ctx:   context.Background(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.NewLogger("session")
	}

	recOpts := []recorder.Option{
		recorder.WithClock(s.clock),
		recorder.WithMaxPages(cfg.Session.MaxPages),
	}
	if s.id != "" {
		recOpts = append(recOpts, recorder.WithID(s.id))
	}
	s.recorder = recorder.New(ex, recOpts...)
	s.log = s.log.WithField("session", s.recorder.ID())

	bridgeOpts := []bridge.Option{
		bridge.WithConfig(BridgeConfig(cfg.Connection)),
		bridge.WithClock(s.clock),
		bridge.WithMetrics(s.metrics),
	}
	if s.validator != nil {
		bridgeOpts = append(bridgeOpts, bridge.WithValidator(s.validator))
	}
	s.bridge = bridge.New(t, bridgeOpts...)

	agg, err := aggregator.New(s.bridge, s.recorder,
		aggregator.WithConfig(AggregatorConfig(cfg.Aggregator)),
		aggregator.WithClock(s.clock),
		aggregator.WithMetrics(s.metrics),
	)
	if err != nil {
		return nil, err
	}
	s.agg = agg
	return s, nil
}

// BridgeConfig converts the connection section to bridge settings.
func BridgeConfig(c config.ConnectionConfig) bridge.Config {
	cfg := bridge.DefaultConfig()
	if c.MaxReconnectAttempts != nil {
		cfg.MaxReconnectAttempts = *c.MaxReconnectAttempts
	}
	setDuration(&cfg.BaseReconnectDelay, c.BaseReconnectDelayMs)
	setDuration(&cfg.MaxReconnectDelay, c.MaxReconnectDelayMs)
	setDuration(&cfg.HeartbeatInterval, c.HeartbeatIntervalMs)
	setDuration(&cfg.ConnectTimeout, c.ConnectTimeoutMs)
	setDuration(&cfg.ConfirmWindow, c.ConfirmWindowMs)
	if c.MaxPending != nil {
		cfg.MaxPending = *c.MaxPending
	}
	return cfg
}

// AggregatorConfig converts the aggregator section to aggregator settings.
func AggregatorConfig(c config.AggregatorConfig) aggregator.Config {
	cfg := aggregator.DefaultConfig()
	setDuration(&cfg.DebounceWindow, c.DebounceMs)
	if c.MaxRecords > 0 {
		cfg.MaxRecords = c.MaxRecords
	}
	if c.MaxNodePaths > 0 {
		cfg.MaxNodePaths = c.MaxNodePaths
	}
	if len(c.IgnoreTags) > 0 {
		cfg.IgnoreTags = c.IgnoreTags
	}
	cfg.IgnorePaths = c.IgnorePaths
	cfg.Coalesce = c.Coalesce
	return cfg
}

func setDuration(d *time.Duration, ms int) {
	if ms > 0 {
		*d = time.Duration(ms) * time.Millisecond
	}
}

func (s *Session) Bridge() *bridge.Bridge             { return s.bridge }
func (s *Session) Recorder() *recorder.Recorder       { return s.recorder }
func (s *Session) Aggregator() *aggregator.Aggregator { return s.agg }
func (s *Session) ID() string                         { return s.recorder.ID() }

// Start connects in the background and begins observing src. The returned
// channel yields the outcome of the first connect attempt.
func (s *Session) Start(ctx context.Context, src aggregator.Source) (<-chan error, error) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil, lerrors.New(lerrors.ErrCodeInvalidInput, "session already started")
	}
	s.started = true
	s.ctx = ctx
	s.unsub = append(s.unsub,
		s.bridge.OnMessage(s.handleMessage),
		s.bridge.OnError(s.handleError),
	)
	s.mu.Unlock()

	result := make(chan error, 1)
	connected := s.bridge.ConnectAsync()
	go func() {
		err := <-connected
		if err != nil {
			s.log.WithError(err).Warn("Initial connect failed")
		}
		result <- err
		close(result)
	}()

	s.agg.Start(ctx, src)
	s.log.Info("Session started")
	return result, nil
}

// Stop flushes pending changes, sends the session record and disconnects.
// When the bridge is still connecting, Stop waits on ctx for the record to
// be delivered.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()

	s.agg.Stop()
	s.bridge.Send(s.recorder.Session())

	var err error
	switch s.bridge.State() {
	case bridge.Connecting, bridge.Reconnecting:
		err = s.bridge.Connect(ctx)
	}
	if s.bridge.Pending() > 0 {
		s.log.WithField("pending", s.bridge.Pending()).Warn("Stopping with undelivered messages")
	}

	for _, fn := range unsub {
		fn()
	}
	s.bridge.Disconnect()
	s.log.Info("Session stopped")
	return err
}

// RecordChat records chat messages and publishes the update.
func (s *Session) RecordChat(msgs ...protocol.ChatMessage) bool {
	return s.bridge.Send(s.recorder.RecordChat(msgs...))
}

// Scrape takes a fresh snapshot and sends it.
func (s *Session) Scrape(ctx context.Context) error {
	snap, err := s.recorder.Snapshot(ctx)
	if err != nil {
		return err
	}
	s.bridge.Send(snap)
	return nil
}

// SaveSession sends the session record.
func (s *Session) SaveSession() bool {
	return s.bridge.Send(s.recorder.Session())
}

func (s *Session) handleMessage(m protocol.Message) {
	cmd, ok := m.(protocol.Command)
	if !ok {
		return
	}
	s.recorder.Touch()
	log := s.log.WithField("action", cmd.Action)

	switch cmd.Action {
	case ActionScrape:
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()
		// Extraction may be slow; keep it off the bridge's delivery path.
		go func() {
			if err := s.Scrape(ctx); err != nil {
				log.WithError(err).Warn("Scrape failed")
				s.sendError(err)
			}
		}()
	case ActionSaveSession:
		s.SaveSession()
	case ActionPing:
		s.bridge.Send(protocol.Pong{Timestamp: protocol.Now(s.clock.Now())})
	default:
		log.Debug("Unhandled command")
	}
}

func (s *Session) handleError(err error) {
	s.log.WithError(err).WithField("code", lerrors.CodeOf(err)).Debug("Bridge error")
}

func (s *Session) sendError(err error) {
	s.bridge.Send(protocol.Error{
		Code:      string(lerrors.CodeOf(err)),
		Message:   err.Error(),
		Timestamp: protocol.Now(s.clock.Now()),
	})
}
