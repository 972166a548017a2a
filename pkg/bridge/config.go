package bridge

import "time"

const defaultDrainRetry = 20 * time.Millisecond

// Config tunes connection handling. It is copied at construction.
type Config struct {
	// MaxReconnectAttempts bounds automatic reconnects after a loss.
	MaxReconnectAttempts int
	// BaseReconnectDelay is the delay before the first reconnect; each
	// further attempt doubles it up to MaxReconnectDelay.
	BaseReconnectDelay time.Duration
	MaxReconnectDelay  time.Duration
	// HeartbeatInterval is the period of liveness probes while connected.
	HeartbeatInterval time.Duration
	// ConnectTimeout fails an attempt that has not confirmed in time.
	// Zero disables it.
	ConnectTimeout time.Duration
	// ConfirmWindow is how long a freshly opened channel must stay up before
	// it counts as connected.
	ConfirmWindow time.Duration
	// MaxPending bounds the outbound queue; the oldest message is evicted on
	// overflow. Zero means unbounded.
	MaxPending int
	// DrainRetry is how soon an interrupted flush is retried while
	// connected, e.g. when the transport's send buffer is full.
	DrainRetry time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxReconnectAttempts: 5,
		BaseReconnectDelay:   1000 * time.Millisecond,
		MaxReconnectDelay:    30000 * time.Millisecond,
		HeartbeatInterval:    30000 * time.Millisecond,
		ConnectTimeout:       10000 * time.Millisecond,
		ConfirmWindow:        100 * time.Millisecond,
		MaxPending:           1000,
		DrainRetry:           defaultDrainRetry,
	}
}
