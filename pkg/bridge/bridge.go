// Package bridge keeps a message channel to the native host alive. It
// connects, confirms, heartbeats and reconnects with exponential backoff, and
// queues outbound messages while the channel is down so that nothing sent is
// lost across reconnects.
package bridge

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	lerrors "github.com/grovetools/sessionlink/errors"
	"github.com/grovetools/sessionlink/logging"
	"github.com/grovetools/sessionlink/pkg/metrics"
	"github.com/grovetools/sessionlink/pkg/protocol"
	"github.com/grovetools/sessionlink/pkg/transport"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

// Validator checks a raw inbound frame before it is decoded.
type Validator interface {
	ValidateBytes(data []byte) error
}

type Option func(*Bridge)

func WithConfig(cfg Config) Option {
	return func(b *Bridge) { b.cfg = cfg }
}

func WithClock(clock clockwork.Clock) Option {
	return func(b *Bridge) { b.clock = clock }
}

func WithLogger(log *logrus.Entry) Option {
	return func(b *Bridge) { b.log = log }
}

func WithValidator(v Validator) Option {
	return func(b *Bridge) { b.validator = v }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(b *Bridge) { b.metrics = m }
}

// attempt is one in-flight connect. done closes once err is final.
type attempt struct {
	reconnect bool
	done      chan struct{}
	err       error
}

func (a *attempt) resolve(err error) {
	a.err = err
	close(a.done)
}

// Bridge is safe for concurrent use. Handlers run outside the bridge lock, one
// at a time and in event order, and may call back into the bridge.
type Bridge struct {
	transport transport.Transport
	cfg       Config
	clock     clockwork.Clock
	log       *logrus.Entry
	validator Validator
	metrics   *metrics.Collector

	mu       sync.Mutex
	state    State
	epoch    uint64
	conn     transport.Conn
	attempt  *attempt
	attempts int
	queue    queue

	cancelOpen     context.CancelFunc
	timeoutTimer   clockwork.Timer
	confirmTimer   clockwork.Timer
	heartbeatTimer clockwork.Timer
	reconnectTimer clockwork.Timer
	drainTimer     clockwork.Timer

	onMessage registry[protocol.Message]
	onError   registry[error]
	onState   registry[StateChange]

	events   []func()
	draining bool
}

// New creates a disconnected Bridge over t.
func New(t transport.Transport, opts ...Option) *Bridge {
	b := &Bridge{
		transport: t,
		cfg:       DefaultConfig(),
		clock:     clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = logging.NewLogger("bridge")
	}
	b.log = b.log.WithField("transport", t.Name())
	if b.cfg.DrainRetry <= 0 {
		b.cfg.DrainRetry = defaultDrainRetry
	}
	b.queue.max = b.cfg.MaxPending
	return b
}

func (b *Bridge) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Pending is the number of queued outbound messages.
func (b *Bridge) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.len()
}

func (b *Bridge) ReconnectAttempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// OnMessage registers fn for every inbound message except liveness acks.
func (b *Bridge) OnMessage(fn func(protocol.Message)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.onMessage.add(fn)
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.onMessage.remove(id)
	}
}

// OnError registers fn for connect failures, connection loss and invalid
// inbound frames.
func (b *Bridge) OnError(fn func(error)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.onError.add(fn)
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.onError.remove(id)
	}
}

func (b *Bridge) OnStateChange(fn func(StateChange)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.onState.add(fn)
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.onState.remove(id)
	}
}

// Connect starts a connect attempt, or joins the one in flight, and waits
// for it to resolve. It returns nil at once when already connected.
func (b *Bridge) Connect(ctx context.Context) error {
	b.mu.Lock()
	a := b.startConnectLocked(b.state == Reconnecting)
	b.mu.Unlock()
	b.drain()

	if a == nil {
		return nil
	}
	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConnectAsync is Connect without waiting. The channel yields the outcome
// once and is then closed.
func (b *Bridge) ConnectAsync() <-chan error {
	b.mu.Lock()
	a := b.startConnectLocked(b.state == Reconnecting)
	b.mu.Unlock()
	b.drain()

	ch := make(chan error, 1)
	if a == nil {
		ch <- nil
		close(ch)
		return ch
	}
	go func() {
		<-a.done
		ch <- a.err
		close(ch)
	}()
	return ch
}

// Disconnect closes the channel and cancels every pending timer. Queued
// messages are kept for the next connection.
func (b *Bridge) Disconnect() {
	b.mu.Lock()
	a := b.attempt
	b.attempt = nil
	b.teardownLocked()
	b.attempts = 0
	b.setStateLocked(Disconnected)
	if a != nil {
		a.resolve(lerrors.ConnectionFailed("disconnected", nil))
	}
	b.mu.Unlock()
	b.drain()
	b.log.Debug("Disconnected")
}

// Send writes m when connected and returns true. Anything already queued is
// flushed first; if it cannot all be written, m is queued behind it and Send
// returns false.
func (b *Bridge) Send(m protocol.Message) bool {
	data, err := protocol.Encode(m)
	if err != nil {
		b.log.WithError(err).Error("Dropping unencodable message")
		b.mu.Lock()
		b.metrics.Message(typeOf(m), metrics.OutcomeDropped)
		b.emitErrorLocked(err)
		b.mu.Unlock()
		b.drain()
		return false
	}
	entry := outbound{typ: m.MessageType(), data: data}

	b.mu.Lock()
	if b.state == Connected && b.conn != nil {
		b.flushLocked()
		if b.queue.len() == 0 {
			err := b.conn.Send(data)
			if err == nil {
				b.metrics.Message(string(entry.typ), metrics.OutcomeSent)
				b.mu.Unlock()
				return true
			}
			b.log.WithError(err).WithField("type", entry.typ).Debug("Send failed, queueing")
			b.scheduleDrainLocked()
		}
	}
	b.enqueueLocked(entry)
	b.mu.Unlock()
	b.drain()
	return false
}

func typeOf(m protocol.Message) string {
	if m == nil {
		return "nil"
	}
	return string(m.MessageType())
}

// startConnectLocked begins an attempt from Disconnected or Reconnecting.
// It returns the in-flight attempt when Connecting and nil when Connected.
func (b *Bridge) startConnectLocked(reconnect bool) *attempt {
	switch b.state {
	case Connected:
		return nil
	case Connecting:
		return b.attempt
	}

	stopTimer(&b.reconnectTimer)
	b.epoch++
	epoch := b.epoch
	a := &attempt{reconnect: reconnect, done: make(chan struct{})}
	b.attempt = a
	b.setStateLocked(Connecting)

	ctx, cancel := context.WithCancel(context.Background())
	b.cancelOpen = cancel
	if b.cfg.ConnectTimeout > 0 {
		b.timeoutTimer = b.clock.AfterFunc(b.cfg.ConnectTimeout, func() { b.onConnectTimeout(epoch) })
	}
	b.log.WithField("reconnect", reconnect).Debug("Connecting")

	go b.open(ctx, epoch)
	return a
}

func (b *Bridge) open(ctx context.Context, epoch uint64) {
	conn, err := b.transport.Open(ctx, transport.Handler{
		OnMessage: func(data []byte) { b.handleFrame(epoch, data) },
		OnClose:   func(err error) { b.handleClose(epoch, err) },
	})

	b.mu.Lock()
	if b.epoch != epoch || b.state != Connecting {
		b.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		if lerrors.GetCode(err) == "" {
			err = lerrors.ConnectionFailed("open "+b.transport.Name(), err)
		}
		b.failAttemptLocked(err)
		b.mu.Unlock()
		b.drain()
		return
	}

	b.conn = conn
	b.confirmTimer = b.clock.AfterFunc(b.cfg.ConfirmWindow, func() { b.onConfirm(epoch) })
	if err := b.sendPingLocked(); err != nil {
		b.failAttemptLocked(lerrors.ConnectionFailed("liveness probe failed", err))
	}
	b.mu.Unlock()
	b.drain()
}

func (b *Bridge) onConfirm(epoch uint64) {
	b.mu.Lock()
	if b.epoch != epoch || b.state != Connecting {
		b.mu.Unlock()
		return
	}
	stopTimer(&b.timeoutTimer)
	b.attempts = 0
	b.setStateLocked(Connected)
	a := b.attempt
	b.attempt = nil
	b.armHeartbeatLocked(epoch)
	b.flushLocked()
	if a != nil {
		a.resolve(nil)
	}
	b.mu.Unlock()
	b.drain()
	b.log.Info("Connected")
}

func (b *Bridge) onConnectTimeout(epoch uint64) {
	b.mu.Lock()
	if b.epoch != epoch || b.state != Connecting {
		b.mu.Unlock()
		return
	}
	b.failAttemptLocked(lerrors.Timeout("connect", b.cfg.ConnectTimeout))
	b.mu.Unlock()
	b.drain()
}

func (b *Bridge) armHeartbeatLocked(epoch uint64) {
	if b.cfg.HeartbeatInterval <= 0 {
		return
	}
	b.heartbeatTimer = b.clock.AfterFunc(b.cfg.HeartbeatInterval, func() { b.onHeartbeat(epoch) })
}

func (b *Bridge) onHeartbeat(epoch uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.epoch != epoch || b.state != Connected {
		return
	}
	b.armHeartbeatLocked(epoch)
	b.flushLocked()
	if err := b.sendPingLocked(); err != nil {
		b.log.WithError(err).Debug("Heartbeat probe failed")
	}
}

func (b *Bridge) sendPingLocked() error {
	ping := protocol.Ping{ID: uuid.NewString(), Action: "ping", Timestamp: protocol.Now(b.clock.Now())}
	data, err := protocol.Encode(ping)
	if err != nil {
		return err
	}
	return b.conn.Send(data)
}

// flushLocked writes queued messages in order, stopping at the first failure.
// An interrupted flush is retried after DrainRetry while connected.
func (b *Bridge) flushLocked() {
	if b.conn == nil || b.queue.len() == 0 {
		return
	}
	n := 0
	for b.queue.len() > 0 {
		e := b.queue.peek()
		if err := b.conn.Send(e.data); err != nil {
			b.log.WithError(err).WithField("remaining", b.queue.len()).Debug("Flush interrupted")
			b.scheduleDrainLocked()
			break
		}
		b.queue.pop()
		b.metrics.Message(string(e.typ), metrics.OutcomeFlushed)
		n++
	}
	b.metrics.SetPending(b.queue.len())
	b.log.WithField("count", n).Debug("Flushed queued messages")
}

func (b *Bridge) scheduleDrainLocked() {
	if b.state != Connected || b.drainTimer != nil {
		return
	}
	epoch := b.epoch
	b.drainTimer = b.clock.AfterFunc(b.cfg.DrainRetry, func() { b.onDrain(epoch) })
}

func (b *Bridge) onDrain(epoch uint64) {
	b.mu.Lock()
	if b.epoch != epoch || b.state != Connected {
		b.mu.Unlock()
		return
	}
	b.drainTimer = nil
	b.flushLocked()
	b.mu.Unlock()
	b.drain()
}

func (b *Bridge) enqueueLocked(e outbound) {
	if evicted, ok := b.queue.push(e); ok {
		b.log.WithField("type", evicted.typ).Warn("Outbound queue full, dropped oldest message")
		b.metrics.Message(string(evicted.typ), metrics.OutcomeEvicted)
	}
	b.metrics.Message(string(e.typ), metrics.OutcomeQueued)
	b.metrics.SetPending(b.queue.len())
}

func (b *Bridge) handleFrame(epoch uint64, data []byte) {
	b.mu.Lock()
	stale := b.epoch != epoch
	b.mu.Unlock()
	if stale {
		return
	}

	if b.validator != nil {
		if err := b.validator.ValidateBytes(data); err != nil {
			b.rejectFrame(lerrors.InvalidMessage("schema validation failed", err))
			return
		}
	}
	msg, err := protocol.Decode(data)
	if err != nil {
		b.rejectFrame(err)
		return
	}

	b.mu.Lock()
	b.metrics.InboundMessage(string(msg.MessageType()))
	if protocol.IsPong(msg) {
		b.mu.Unlock()
		b.log.Trace("Liveness ack")
		return
	}
	handlers := b.onMessage.snapshot()
	b.post(func() {
		for _, fn := range handlers {
			fn(msg)
		}
	})
	b.mu.Unlock()
	b.drain()
}

func (b *Bridge) rejectFrame(err error) {
	b.log.WithError(err).Warn("Dropping invalid inbound frame")
	b.mu.Lock()
	b.metrics.Invalid()
	b.emitErrorLocked(err)
	b.mu.Unlock()
	b.drain()
}

func (b *Bridge) handleClose(epoch uint64, cause error) {
	b.mu.Lock()
	if b.epoch != epoch {
		b.mu.Unlock()
		return
	}
	switch b.state {
	case Connecting:
		b.conn = nil
		b.failAttemptLocked(lerrors.ConnectionFailed("channel closed while connecting", cause))
	case Connected:
		b.conn = nil
		b.teardownLocked()
		b.setStateLocked(Disconnected)
		b.log.WithError(cause).Warn("Connection lost")
		b.emitErrorLocked(lerrors.ConnectionFailed("connection lost", cause))
		b.scheduleReconnectLocked()
	}
	b.mu.Unlock()
	b.drain()
}

// failAttemptLocked resolves the in-flight attempt with err. Attempts started
// by the reconnect timer chain into the next reconnect.
func (b *Bridge) failAttemptLocked(err error) {
	a := b.attempt
	b.attempt = nil
	b.teardownLocked()
	b.setStateLocked(Disconnected)
	b.metrics.ConnectFailure(string(lerrors.CodeOf(err)))
	b.log.WithError(err).Warn("Connect attempt failed")
	b.emitErrorLocked(err)
	if a == nil {
		return
	}
	a.resolve(err)
	if a.reconnect {
		b.scheduleReconnectLocked()
	}
}

func (b *Bridge) scheduleReconnectLocked() {
	if b.attempts >= b.cfg.MaxReconnectAttempts {
		b.log.WithField("attempts", b.attempts).Error("Giving up on reconnecting")
		b.emitErrorLocked(lerrors.ConnectionFailed(
			fmt.Sprintf("reconnect attempts exhausted after %d tries", b.attempts), nil).
			WithDetail(exhaustedDetail, b.attempts))
		return
	}
	b.attempts++
	delay := ReconnectDelay(b.cfg.BaseReconnectDelay, b.cfg.MaxReconnectDelay, b.attempts)
	b.setStateLocked(Reconnecting)
	b.metrics.Reconnect()
	b.log.WithFields(logrus.Fields{"attempt": b.attempts, "delay": delay}).Info("Scheduling reconnect")

	epoch := b.epoch
	b.reconnectTimer = b.clock.AfterFunc(delay, func() { b.onReconnect(epoch) })
}

// exhaustedDetail marks the terminal error and carries the attempt count.
const exhaustedDetail = "attempts"

// IsExhausted reports whether err is the terminal CONNECTION_FAILED emitted
// once automatic reconnection has given up.
func IsExhausted(err error) bool {
	var le *lerrors.LinkError
	if !stderrors.As(err, &le) || le.Code != lerrors.ErrCodeConnectionFailed {
		return false
	}
	_, ok := le.Details[exhaustedDetail]
	return ok
}

func (b *Bridge) onReconnect(epoch uint64) {
	b.mu.Lock()
	if b.epoch != epoch || b.state != Reconnecting {
		b.mu.Unlock()
		return
	}
	b.startConnectLocked(true)
	b.mu.Unlock()
	b.drain()
}

// teardownLocked invalidates every timer and callback of the current epoch
// and closes the channel.
func (b *Bridge) teardownLocked() {
	b.epoch++
	stopTimer(&b.timeoutTimer)
	stopTimer(&b.confirmTimer)
	stopTimer(&b.heartbeatTimer)
	stopTimer(&b.reconnectTimer)
	stopTimer(&b.drainTimer)
	if b.cancelOpen != nil {
		b.cancelOpen()
		b.cancelOpen = nil
	}
	if b.conn != nil {
		conn := b.conn
		b.conn = nil
		b.post(func() { conn.Close() })
	}
}

func stopTimer(t *clockwork.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

func (b *Bridge) setStateLocked(s State) {
	if b.state == s {
		return
	}
	change := StateChange{Old: b.state, New: s}
	b.state = s
	b.metrics.SetState(int(s))
	b.log.WithFields(logrus.Fields{"from": change.Old, "to": change.New}).Debug("State change")

	handlers := b.onState.snapshot()
	b.post(func() {
		for _, fn := range handlers {
			fn(change)
		}
	})
}

func (b *Bridge) emitErrorLocked(err error) {
	handlers := b.onError.snapshot()
	b.post(func() {
		for _, fn := range handlers {
			fn(err)
		}
	})
}

func (b *Bridge) post(ev func()) {
	b.events = append(b.events, ev)
}

// drain delivers queued events outside the lock. Only one goroutine drains
// at a time; events posted meanwhile are picked up by that drainer.
func (b *Bridge) drain() {
	b.mu.Lock()
	if b.draining {
		b.mu.Unlock()
		return
	}
	b.draining = true
	for len(b.events) > 0 {
		ev := b.events[0]
		b.events[0] = nil
		b.events = b.events[1:]
		b.mu.Unlock()
		ev()
		b.mu.Lock()
	}
	b.events = nil
	b.draining = false
	b.mu.Unlock()
}
