package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Config is the contents of a sessionlink.yml / sessionlink.toml file.
// Durations are integer milliseconds.
type Config struct {
	Version    string           `yaml:"version" toml:"version" jsonschema:"description=Configuration version (e.g. '1.0')"`
	Connection ConnectionConfig `yaml:"connection,omitempty" toml:"connection,omitempty" jsonschema:"description=Connection bridge timing and queueing"`
	Aggregator AggregatorConfig `yaml:"aggregator,omitempty" toml:"aggregator,omitempty" jsonschema:"description=Page change batching"`
	Transport  TransportConfig  `yaml:"transport,omitempty" toml:"transport,omitempty" jsonschema:"description=How to reach the native host"`
	Session    SessionConfig    `yaml:"session,omitempty" toml:"session,omitempty" jsonschema:"description=Session recording and page sources"`
	Metrics    MetricsConfig    `yaml:"metrics,omitempty" toml:"metrics,omitempty" jsonschema:"description=Prometheus endpoint"`

	// Extensions holds every other top-level section, e.g. "logging".
	Extensions map[string]interface{} `yaml:",inline" toml:"-" jsonschema:"-"`
}

type ConnectionConfig struct {
	// MaxReconnectAttempts and MaxPending are pointers so that an explicit 0
	// is kept: it disables reconnection and unbounds the queue respectively.
	MaxReconnectAttempts *int `yaml:"max_reconnect_attempts,omitempty" toml:"max_reconnect_attempts,omitempty" jsonschema:"description=Automatic reconnection attempts before giving up (default: 5)"`
	BaseReconnectDelayMs int  `yaml:"base_reconnect_delay_ms,omitempty" toml:"base_reconnect_delay_ms,omitempty" jsonschema:"description=First reconnection delay; doubles per attempt (default: 1000)"`
	MaxReconnectDelayMs  int  `yaml:"max_reconnect_delay_ms,omitempty" toml:"max_reconnect_delay_ms,omitempty" jsonschema:"description=Upper bound on the reconnection delay (default: 30000)"`
	HeartbeatIntervalMs  int  `yaml:"heartbeat_interval_ms,omitempty" toml:"heartbeat_interval_ms,omitempty" jsonschema:"description=Interval between liveness pings while connected (default: 30000)"`
	ConnectTimeoutMs     int  `yaml:"connect_timeout_ms,omitempty" toml:"connect_timeout_ms,omitempty" jsonschema:"description=Deadline for a connection attempt (default: 10000)"`
	ConfirmWindowMs      int  `yaml:"confirm_window_ms,omitempty" toml:"confirm_window_ms,omitempty" jsonschema:"description=How long a new connection must stay up to be confirmed (default: 100)"`
	MaxPending           *int `yaml:"max_pending,omitempty" toml:"max_pending,omitempty" jsonschema:"description=Outbound queue bound; the oldest message is evicted beyond it; 0 means unbounded (default: 1000)"`
}

type AggregatorConfig struct {
	DebounceMs   int      `yaml:"debounce_ms,omitempty" toml:"debounce_ms,omitempty" jsonschema:"description=Quiet period before a change batch is emitted (default: 500)"`
	MaxRecords   int      `yaml:"max_records,omitempty" toml:"max_records,omitempty" jsonschema:"description=Most recent change records kept per batch (default: 100)"`
	MaxNodePaths int      `yaml:"max_node_paths,omitempty" toml:"max_node_paths,omitempty" jsonschema:"description=Added or removed node paths kept per record (default: 10)"`
	IgnoreTags   []string `yaml:"ignore_tags,omitempty" toml:"ignore_tags,omitempty" jsonschema:"description=Element tags whose changes are dropped"`
	IgnorePaths  []string `yaml:"ignore_paths,omitempty" toml:"ignore_paths,omitempty" jsonschema:"description=Element path globs whose subtrees are ignored"`
	Coalesce     bool     `yaml:"coalesce,omitempty" toml:"coalesce,omitempty" jsonschema:"description=Merge consecutive attribute or text changes on the same element"`
}

// DefaultHostCommand is launched as the native host when none is configured;
// its "host" subcommand speaks the host side of the protocol.
const DefaultHostCommand = "sessionlink"

// Transport kinds.
const (
	TransportNative    = "native"
	TransportUnix      = "unix"
	TransportWebSocket = "websocket"
)

type TransportConfig struct {
	Kind          string            `yaml:"kind,omitempty" toml:"kind,omitempty" jsonschema:"enum=native,enum=unix,enum=websocket,description=Transport kind (default: native)"`
	Command       string            `yaml:"command,omitempty" toml:"command,omitempty" jsonschema:"description=Native host executable"`
	Args          []string          `yaml:"args,omitempty" toml:"args,omitempty" jsonschema:"description=Native host arguments"`
	Socket        string            `yaml:"socket,omitempty" toml:"socket,omitempty" jsonschema:"description=Unix socket path (default: runtime dir)"`
	URL           string            `yaml:"url,omitempty" toml:"url,omitempty" jsonschema:"description=WebSocket URL"`
	Headers       map[string]string `yaml:"headers,omitempty" toml:"headers,omitempty" jsonschema:"description=Extra WebSocket handshake headers"`
	DialTimeoutMs int               `yaml:"dial_timeout_ms,omitempty" toml:"dial_timeout_ms,omitempty" jsonschema:"description=Socket dial timeout"`
}

type SessionConfig struct {
	MaxPages        int    `yaml:"max_pages,omitempty" toml:"max_pages,omitempty" jsonschema:"description=Pages kept in the session record (default: 50)"`
	PageFile        string `yaml:"page_file,omitempty" toml:"page_file,omitempty" jsonschema:"description=HTML file holding the observed page"`
	PageURL         string `yaml:"page_url,omitempty" toml:"page_url,omitempty" jsonschema:"description=URL reported for the observed page"`
	PageDebounceMs  int    `yaml:"page_debounce_ms,omitempty" toml:"page_debounce_ms,omitempty" jsonschema:"description=Settle time after page file writes (default: 200)"`
	EventsFile      string `yaml:"events_file,omitempty" toml:"events_file,omitempty" jsonschema:"description=JSON lines file of page change events to follow"`
	EventsFromStart bool   `yaml:"events_from_start,omitempty" toml:"events_from_start,omitempty" jsonschema:"description=Replay events already in the file"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty" toml:"addr,omitempty" jsonschema:"description=Listen address for the Prometheus endpoint; empty disables it"`
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.Version == "" {
		c.Version = "1.0"
	}

	conn := &c.Connection
	if conn.MaxReconnectAttempts == nil {
		n := 5
		conn.MaxReconnectAttempts = &n
	}
	setDefault(&conn.BaseReconnectDelayMs, 1000)
	setDefault(&conn.MaxReconnectDelayMs, 30000)
	setDefault(&conn.HeartbeatIntervalMs, 30000)
	setDefault(&conn.ConnectTimeoutMs, 10000)
	setDefault(&conn.ConfirmWindowMs, 100)
	if conn.MaxPending == nil {
		n := 1000
		conn.MaxPending = &n
	}

	agg := &c.Aggregator
	setDefault(&agg.DebounceMs, 500)
	setDefault(&agg.MaxRecords, 100)
	setDefault(&agg.MaxNodePaths, 10)

	if c.Transport.Kind == "" {
		c.Transport.Kind = TransportNative
	}
	if c.Transport.Kind == TransportNative && c.Transport.Command == "" {
		c.Transport.Command = DefaultHostCommand
		c.Transport.Args = []string{"host"}
	}

	setDefault(&c.Session.MaxPages, 50)
	setDefault(&c.Session.PageDebounceMs, 200)
}

func setDefault(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// UnmarshalExtension decodes an extension section into target, which must be
// a pointer. A missing section leaves target untouched.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
