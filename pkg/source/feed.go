// Package source provides page change event sources for the aggregator and a
// watcher for the page file itself.
package source

import (
	"sync"

	"github.com/grovetools/sessionlink/pkg/aggregator"
)

// Feed fans published events out to every subscriber, in subscription order.
type Feed struct {
	mu   sync.Mutex
	next uint64
	subs []feedSub
}

type feedSub struct {
	id uint64
	fn func(aggregator.Event)
}

func NewFeed() *Feed {
	return &Feed{}
}

func (f *Feed) Subscribe(fn func(aggregator.Event)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := f.next
	f.subs = append(f.subs, feedSub{id: id, fn: fn})
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		for i, s := range f.subs {
			if s.id == id {
				f.subs = append(f.subs[:i:i], f.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers ev synchronously. Subscribers may unsubscribe from within
// their callback.
func (f *Feed) Publish(ev aggregator.Event) {
	f.mu.Lock()
	subs := append([]feedSub(nil), f.subs...)
	f.mu.Unlock()
	for _, s := range subs {
		s.fn(ev)
	}
}

// Subscribers returns the number of live subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
