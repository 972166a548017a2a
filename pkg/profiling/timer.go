package profiling

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"
)

// Stopper ends a timed span.
type Stopper interface {
	Stop()
}

type stat struct {
	count int
	total time.Duration
	max   time.Duration
}

// Profiler accumulates span durations by name. Spans may run concurrently.
type Profiler struct {
	mu      sync.Mutex
	enabled bool
	start   time.Time
	stats   map[string]*stat
}

var defaultProfiler = &Profiler{}

type span struct {
	p     *Profiler
	name  string
	start time.Time
}

func (s *span) Stop() {
	s.p.record(s.name, time.Since(s.start))
}

type noopStopper struct{}

func (noopStopper) Stop() {}

// Enable turns on the global profiler.
func Enable() {
	defaultProfiler.mu.Lock()
	defer defaultProfiler.mu.Unlock()
	if defaultProfiler.enabled {
		return
	}
	defaultProfiler.enabled = true
	defaultProfiler.start = time.Now()
	defaultProfiler.stats = make(map[string]*stat)
}

// Enabled reports whether spans are being recorded.
func Enabled() bool {
	defaultProfiler.mu.Lock()
	defer defaultProfiler.mu.Unlock()
	return defaultProfiler.enabled
}

// Start begins a span, typically ended via defer. It costs nothing while
// the profiler is disabled.
func Start(name string) Stopper {
	return defaultProfiler.Start(name)
}

func (p *Profiler) Start(name string) Stopper {
	p.mu.Lock()
	enabled := p.enabled
	p.mu.Unlock()
	if !enabled {
		return noopStopper{}
	}
	return &span{p: p, name: name, start: time.Now()}
}

func (p *Profiler) record(name string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}
	st := p.stats[name]
	if st == nil {
		st = &stat{}
		p.stats[name] = st
	}
	st.count++
	st.total += d
	if d > st.max {
		st.max = d
	}
}

// Summarize prints the accumulated spans to w, largest total first.
func Summarize(w io.Writer) {
	defaultProfiler.Summarize(w)
}

func (p *Profiler) Summarize(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.enabled {
		return
	}

	names := make([]string, 0, len(p.stats))
	for name := range p.stats {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := p.stats[names[i]], p.stats[names[j]]
		if a.total != b.total {
			return a.total > b.total
		}
		return names[i] < names[j]
	})

	elapsed := time.Since(p.start)
	fmt.Fprintf(w, "\n--- Timing Profile (%v) ---\n", elapsed.Round(time.Millisecond))
	for _, name := range names {
		st := p.stats[name]
		fmt.Fprintf(w, "- %s: %d calls, total %v, max %v\n",
			name, st.count, st.total.Round(100*time.Microsecond), st.max.Round(100*time.Microsecond))
	}
	fmt.Fprintln(w, "--------------------")
}
