package transport

import (
	"bufio"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// pumpConn owns one reader goroutine and one writer goroutine around a pair
// of frame functions. All transports share it.
type pumpConn struct {
	read   func() ([]byte, error)
	write  func([]byte) error
	closer func() error
	h      Handler
	log    *logrus.Entry

	sendCh      chan []byte
	done        chan struct{}
	closing     chan struct{}
	closeOnce   sync.Once
	closingOnce sync.Once
	local       atomic.Bool
	wg          sync.WaitGroup
}

// closeGrace bounds how long a local Close waits for buffered frames to be
// written before the channel is torn down regardless.
var closeGrace = 2 * time.Second

func newPumpConn(read func() ([]byte, error), write func([]byte) error, closer func() error, h Handler, log *logrus.Entry) *pumpConn {
	return &pumpConn{
		read:    read,
		write:   write,
		closer:  closer,
		h:       h,
		log:     log,
		sendCh:  make(chan []byte, DefaultSendBuffer),
		done:    make(chan struct{}),
		closing: make(chan struct{}),
	}
}

// newStreamConn frames a byte stream with WriteFrame / ReadFrame.
func newStreamConn(r io.Reader, w io.Writer, closer func() error, h Handler, log *logrus.Entry) *pumpConn {
	bw := bufio.NewWriter(w)
	write := func(data []byte) error {
		if err := WriteFrame(bw, data); err != nil {
			return err
		}
		return bw.Flush()
	}
	return newPumpConn(func() ([]byte, error) { return ReadFrame(r) }, write, closer, h, log)
}

func (c *pumpConn) start() {
	c.wg.Add(2)
	go c.readLoop()
	go c.writeLoop()
}

func (c *pumpConn) Send(data []byte) error {
	if len(data) > MaxFrameSize {
		return frameTooLarge(len(data))
	}
	select {
	case <-c.done:
		return ErrClosed
	case <-c.closing:
		return ErrClosed
	default:
	}
	select {
	case c.sendCh <- data:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrBufferFull
	}
}

// Close writes whatever is already buffered, then closes the channel. It
// does not wait.
func (c *pumpConn) Close() error {
	c.local.Store(true)
	c.closingOnce.Do(func() {
		close(c.closing)
		time.AfterFunc(closeGrace, func() { c.shutdown(nil) })
	})
	return nil
}

// wait blocks until both pumps have exited.
func (c *pumpConn) wait() {
	c.wg.Wait()
}

func (c *pumpConn) readLoop() {
	defer c.wg.Done()
	for {
		frame, err := c.read()
		if err != nil {
			c.shutdown(err)
			return
		}
		if c.h.OnMessage != nil {
			c.h.OnMessage(frame)
		}
	}
}

func (c *pumpConn) writeLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.done:
			return
		case data := <-c.sendCh:
			if err := c.write(data); err != nil {
				c.shutdown(err)
				return
			}
		case <-c.closing:
			c.flushBuffered()
			c.shutdown(nil)
			return
		}
	}
}

func (c *pumpConn) flushBuffered() {
	for {
		select {
		case data := <-c.sendCh:
			if err := c.write(data); err != nil {
				c.log.WithError(err).Debug("Dropping buffered frames on close")
				return
			}
		case <-c.done:
			return
		default:
			return
		}
	}
}

func (c *pumpConn) shutdown(cause error) {
	notify := false
	c.closeOnce.Do(func() {
		close(c.done)
		if err := c.closer(); err != nil {
			c.log.WithError(err).Debug("Close failed")
		}
		notify = !c.local.Load()
	})
	if !notify {
		return
	}

	if cause == io.EOF {
		c.log.Debug("Peer closed the channel")
	} else {
		c.log.WithError(cause).Debug("Channel failed")
	}
	if c.h.OnClose != nil {
		c.h.OnClose(cause)
	}
}
