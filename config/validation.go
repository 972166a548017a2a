package config

import (
	"fmt"
	"net/url"
	"path/filepath"

	"github.com/grovetools/sessionlink/errors"
)

// Validate checks a defaulted configuration.
func (c *Config) Validate() error {
	conn := c.Connection
	if conn.MaxReconnectAttempts != nil && *conn.MaxReconnectAttempts < 0 {
		return invalid("connection.max_reconnect_attempts", "must not be negative")
	}
	if conn.MaxPending != nil && *conn.MaxPending < 0 {
		return invalid("connection.max_pending", "must not be negative")
	}
	for field, v := range map[string]int{
		"connection.base_reconnect_delay_ms": conn.BaseReconnectDelayMs,
		"connection.max_reconnect_delay_ms":  conn.MaxReconnectDelayMs,
		"connection.heartbeat_interval_ms":   conn.HeartbeatIntervalMs,
		"connection.connect_timeout_ms":      conn.ConnectTimeoutMs,
		"connection.confirm_window_ms":       conn.ConfirmWindowMs,
		"aggregator.debounce_ms":             c.Aggregator.DebounceMs,
		"aggregator.max_records":             c.Aggregator.MaxRecords,
		"aggregator.max_node_paths":          c.Aggregator.MaxNodePaths,
		"session.max_pages":                  c.Session.MaxPages,
		"session.page_debounce_ms":           c.Session.PageDebounceMs,
		"transport.dial_timeout_ms":          c.Transport.DialTimeoutMs,
	} {
		if v < 0 {
			return invalid(field, "must not be negative")
		}
	}
	if conn.MaxReconnectDelayMs < conn.BaseReconnectDelayMs {
		return invalid("connection.max_reconnect_delay_ms", "must be at least base_reconnect_delay_ms")
	}

	for _, p := range c.Aggregator.IgnorePaths {
		if _, err := filepath.Match(p, ""); err != nil {
			return invalid("aggregator.ignore_paths", fmt.Sprintf("bad pattern %q", p))
		}
	}

	return c.Transport.validate()
}

func (t TransportConfig) validate() error {
	switch t.Kind {
	case TransportNative:
		if t.Command == "" {
			return invalid("transport.command", "required for the native transport")
		}
	case TransportUnix:
	case TransportWebSocket:
		if t.URL == "" {
			return invalid("transport.url", "required for the websocket transport")
		}
		u, err := url.Parse(t.URL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			return invalid("transport.url", "must be a ws:// or wss:// URL")
		}
	default:
		return invalid("transport.kind", fmt.Sprintf("unknown transport %q", t.Kind))
	}
	return nil
}

func invalid(field, reason string) error {
	return errors.ConfigInvalid(fmt.Sprintf("%s %s", field, reason)).WithDetail("field", field)
}
