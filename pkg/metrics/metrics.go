// Package metrics holds the Prometheus collectors for a session. Every method
// is safe to call on a nil *Collector, which records nothing.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "sessionlink"

// Outcomes recorded for outbound messages.
const (
	OutcomeSent    = "sent"
	OutcomeQueued  = "queued"
	OutcomeFlushed = "flushed"
	OutcomeEvicted = "evicted"
	OutcomeDropped = "dropped"
)

type Collector struct {
	State             prometheus.Gauge
	Pending           prometheus.Gauge
	Messages          *prometheus.CounterVec
	Inbound           *prometheus.CounterVec
	InboundInvalid    prometheus.Counter
	ReconnectAttempts prometheus.Counter
	ConnectFailures   *prometheus.CounterVec
	Batches           prometheus.Counter
	BatchSize         prometheus.Histogram
	RecordsDropped    prometheus.Counter
}

// New creates and registers the collectors on reg.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "state",
			Help:      "Current bridge state (0=disconnected, 1=connecting, 2=connected, 3=reconnecting).",
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "pending_messages",
			Help:      "Messages waiting in the outbound queue.",
		}),
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "messages_total",
			Help:      "Outbound messages by type and outcome.",
		}, []string{"type", "outcome"}),
		Inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "inbound_messages_total",
			Help:      "Inbound messages by type.",
		}, []string{"type"}),
		InboundInvalid: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "inbound_invalid_total",
			Help:      "Inbound frames dropped as invalid.",
		}),
		ReconnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "reconnect_attempts_total",
			Help:      "Scheduled reconnect attempts.",
		}),
		ConnectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "connect_failures_total",
			Help:      "Failed connect attempts by error code.",
		}, []string{"code"}),
		Batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "batches_total",
			Help:      "Change batches emitted.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "batch_records",
			Help:      "Records per emitted change batch.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100},
		}),
		RecordsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "records_dropped_total",
			Help:      "Change records discarded by the batch cap.",
		}),
	}

	reg.MustRegister(c.State, c.Pending, c.Messages, c.Inbound, c.InboundInvalid,
		c.ReconnectAttempts, c.ConnectFailures, c.Batches, c.BatchSize, c.RecordsDropped)
	return c
}

func (c *Collector) SetState(state int) {
	if c == nil {
		return
	}
	c.State.Set(float64(state))
}

func (c *Collector) SetPending(n int) {
	if c == nil {
		return
	}
	c.Pending.Set(float64(n))
}

func (c *Collector) Message(typ, outcome string) {
	if c == nil {
		return
	}
	c.Messages.WithLabelValues(typ, outcome).Inc()
}

func (c *Collector) InboundMessage(typ string) {
	if c == nil {
		return
	}
	c.Inbound.WithLabelValues(typ).Inc()
}

func (c *Collector) Invalid() {
	if c == nil {
		return
	}
	c.InboundInvalid.Inc()
}

func (c *Collector) Reconnect() {
	if c == nil {
		return
	}
	c.ReconnectAttempts.Inc()
}

func (c *Collector) ConnectFailure(code string) {
	if c == nil {
		return
	}
	c.ConnectFailures.WithLabelValues(code).Inc()
}

// Batch records an emitted batch of n records.
func (c *Collector) Batch(n int) {
	if c == nil {
		return
	}
	c.Batches.Inc()
	c.BatchSize.Observe(float64(n))
}

func (c *Collector) Dropped(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.RecordsDropped.Add(float64(n))
}
