// Package recorder keeps the record of one browsing session: the pages seen,
// the chat transcript and the activity window.
package recorder

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/grovetools/sessionlink/pkg/protocol"
	"github.com/jonboulle/clockwork"
)

// DefaultMaxPages bounds the pages kept per session.
const DefaultMaxPages = 50

// Extractor produces a full snapshot of the current page.
type Extractor interface {
	Extract(ctx context.Context) (protocol.PageScraped, error)
}

type Option func(*Recorder)

func WithClock(clock clockwork.Clock) Option {
	return func(r *Recorder) { r.clock = clock }
}

func WithMaxPages(n int) Option {
	return func(r *Recorder) { r.maxPages = n }
}

func WithID(id string) Option {
	return func(r *Recorder) { r.id = id }
}

// Recorder satisfies aggregator.Page: each snapshot taken through it is also
// recorded in the session.
type Recorder struct {
	ex       Extractor
	clock    clockwork.Clock
	maxPages int
	id       string

	mu           sync.Mutex
	start        int64
	lastActivity int64
	url          string
	pages        []protocol.PageScraped
	chat         []protocol.ChatMessage
}

func New(ex Extractor, opts ...Option) *Recorder {
	r := &Recorder{
		ex:       ex,
		clock:    clockwork.NewRealClock(),
		maxPages: DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.id == "" {
		r.id = uuid.NewString()
	}
	r.start = protocol.Now(r.clock.Now())
	r.lastActivity = r.start
	return r
}

func (r *Recorder) ID() string { return r.id }

// URL is the address of the most recent snapshot.
func (r *Recorder) URL() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.url
}

// Snapshot extracts the page and records it. A page already seen at the same
// URL is replaced and moved to the end.
func (r *Recorder) Snapshot(ctx context.Context) (protocol.PageScraped, error) {
	snap, err := r.ex.Extract(ctx)
	if err != nil {
		return protocol.PageScraped{}, err
	}
	if snap.Timestamp == 0 {
		snap.Timestamp = protocol.Now(r.clock.Now())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.url = snap.URL
	for i, p := range r.pages {
		if p.URL == snap.URL {
			r.pages = append(r.pages[:i], r.pages[i+1:]...)
			break
		}
	}
	r.pages = append(r.pages, snap)
	if r.maxPages > 0 && len(r.pages) > r.maxPages {
		r.pages = append(r.pages[:0:0], r.pages[len(r.pages)-r.maxPages:]...)
	}
	r.touchLocked()
	return snap, nil
}

// RecordChat appends messages to the transcript and returns the update to
// publish.
func (r *Recorder) RecordChat(msgs ...protocol.ChatMessage) protocol.ChatUpdated {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := protocol.Now(r.clock.Now())
	stamped := make([]protocol.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Timestamp == 0 {
			m.Timestamp = now
		}
		stamped = append(stamped, m)
	}
	r.chat = append(r.chat, stamped...)
	r.touchLocked()
	return protocol.ChatUpdated{Messages: stamped}
}

// Touch marks user activity.
func (r *Recorder) Touch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.touchLocked()
}

func (r *Recorder) touchLocked() {
	r.lastActivity = protocol.Now(r.clock.Now())
}

// Session returns the SESSION_SAVED message describing the session so far.
func (r *Recorder) Session() protocol.SessionSaved {
	r.mu.Lock()
	defer r.mu.Unlock()
	return protocol.SessionSaved{
		SessionID:    r.id,
		URL:          r.url,
		StartTime:    r.start,
		LastActivity: r.lastActivity,
		Pages:        append([]protocol.PageScraped(nil), r.pages...),
		ChatMessages: append([]protocol.ChatMessage(nil), r.chat...),
	}
}
