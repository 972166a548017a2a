package logging

// Config is the "logging" section of sessionlink.yml.
type Config struct {
	// Level is the minimum log level to output (e.g., "debug", "info", "warn", "error").
	// Can be overridden by the SESSIONLINK_LOG_LEVEL environment variable.
	Level string `yaml:"level"`

	// ReportCaller, if true, includes the file, line, and function name in the log output.
	// Can be enabled with SESSIONLINK_LOG_CALLER=true.
	ReportCaller bool `yaml:"report_caller"`

	File FileSinkConfig `yaml:"file"`

	Format FormatConfig `yaml:"format"`
}

// FileSinkConfig configures the file logging sink.
type FileSinkConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path defaults to <state dir>/logs/<component>-<date>.log.
	Path string `yaml:"path"`
}

// FormatConfig controls the log output format.
type FormatConfig struct {
	// Preset can be "default" (rich text), "simple" (minimal text), or "json".
	Preset           string `yaml:"preset"`
	DisableTimestamp bool   `yaml:"disable_timestamp"`
	DisableComponent bool   `yaml:"disable_component"`
	// StructuredToStderr is "auto" (default), "always", or "never".
	StructuredToStderr string `yaml:"structured_to_stderr"`
}
