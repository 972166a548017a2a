package bridge

import "github.com/grovetools/sessionlink/pkg/protocol"

type outbound struct {
	typ  protocol.Type
	data []byte
}

// queue is the FIFO of encoded messages waiting for a connection.
type queue struct {
	items []outbound
	max   int
}

// push appends e and reports the entry evicted to stay within max, if any.
func (q *queue) push(e outbound) (evicted outbound, ok bool) {
	q.items = append(q.items, e)
	if q.max > 0 && len(q.items) > q.max {
		evicted = q.items[0]
		q.pop()
		return evicted, true
	}
	return outbound{}, false
}

func (q *queue) peek() outbound { return q.items[0] }

func (q *queue) pop() {
	q.items[0] = outbound{}
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
}

func (q *queue) len() int { return len(q.items) }
