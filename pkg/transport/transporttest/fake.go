// Package transporttest provides an in-memory Transport for tests.
package transporttest

import (
	"context"
	"sync"

	"github.com/grovetools/sessionlink/pkg/protocol"
	"github.com/grovetools/sessionlink/pkg/transport"
)

// Fake records every Open and hands out FakeConns driven by the test.
type Fake struct {
	mu       sync.Mutex
	failures []error
	always   error
	hold     chan struct{}
	sendErr  error
	conns    []*FakeConn
	opened   chan *FakeConn
}

func New() *Fake {
	return &Fake{opened: make(chan *FakeConn, 128)}
}

func (f *Fake) Name() string { return "fake" }

// FailNext makes the next Open calls fail with errs, in order.
func (f *Fake) FailNext(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, errs...)
}

// FailAlways makes every Open fail with err until cleared with nil.
func (f *Fake) FailAlways(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.always = err
}

// FailConnSends makes conns opened from now on reject every Send with err.
func (f *Fake) FailConnSends(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = err
}

// Hold makes Open block until Release or until its context ends.
func (f *Fake) Hold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hold == nil {
		f.hold = make(chan struct{})
	}
}

func (f *Fake) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hold != nil {
		close(f.hold)
		f.hold = nil
	}
}

func (f *Fake) Open(ctx context.Context, h transport.Handler) (transport.Conn, error) {
	f.mu.Lock()
	hold := f.hold
	f.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		f.conns = append(f.conns, nil)
		return nil, err
	}
	if f.always != nil {
		f.conns = append(f.conns, nil)
		return nil, f.always
	}
	c := &FakeConn{h: h, sendErr: f.sendErr}
	f.conns = append(f.conns, c)
	select {
	case f.opened <- c:
	default:
	}
	return c, nil
}

// Opens counts Open calls, successful or not.
func (f *Fake) Opens() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

// Last returns the most recent successful conn, or nil.
func (f *Fake) Last() *FakeConn {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.conns) - 1; i >= 0; i-- {
		if f.conns[i] != nil {
			return f.conns[i]
		}
	}
	return nil
}

// Opened yields each successful conn as it is created.
func (f *Fake) Opened() <-chan *FakeConn { return f.opened }

// FakeConn captures sent frames and lets the test inject inbound frames.
type FakeConn struct {
	mu      sync.Mutex
	h       transport.Handler
	sent    [][]byte
	closed  bool
	sendErr error
}

func (c *FakeConn) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return transport.ErrClosed
	}
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, append([]byte(nil), data...))
	return nil
}

func (c *FakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// FailSends makes Send return err until cleared with nil.
func (c *FakeConn) FailSends(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendErr = err
}

func (c *FakeConn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Deliver injects a raw inbound frame.
func (c *FakeConn) Deliver(data []byte) {
	if c.h.OnMessage != nil {
		c.h.OnMessage(data)
	}
}

// DeliverMessage encodes and injects m.
func (c *FakeConn) DeliverMessage(m protocol.Message) error {
	data, err := protocol.Encode(m)
	if err != nil {
		return err
	}
	c.Deliver(data)
	return nil
}

// Drop simulates the peer going away.
func (c *FakeConn) Drop(err error) {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	if c.h.OnClose != nil {
		c.h.OnClose(err)
	}
}

func (c *FakeConn) Sent() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.sent...)
}

// SentMessages decodes every sent frame, skipping undecodable ones.
func (c *FakeConn) SentMessages() []protocol.Message {
	var out []protocol.Message
	for _, data := range c.Sent() {
		if m, err := protocol.Decode(data); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// SentTypes lists the type of every decodable sent frame.
func (c *FakeConn) SentTypes() []protocol.Type {
	var out []protocol.Type
	for _, m := range c.SentMessages() {
		out = append(out, m.MessageType())
	}
	return out
}

// SentExcept returns decoded sent messages whose type is not in skip.
func (c *FakeConn) SentExcept(skip ...protocol.Type) []protocol.Message {
	var out []protocol.Message
outer:
	for _, m := range c.SentMessages() {
		for _, t := range skip {
			if m.MessageType() == t {
				continue outer
			}
		}
		out = append(out, m)
	}
	return out
}
