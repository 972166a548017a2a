// Package logging configures per-component logrus loggers from the
// environment and the "logging" section of sessionlink.yml.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/grovetools/sessionlink/config"
	"github.com/grovetools/sessionlink/pkg/paths"
	"github.com/grovetools/sessionlink/util/pathutil"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex
)

// NewLogger returns the logger for a component, creating it on first use.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	var logCfg Config
	cfg, err := config.LoadDefault()
	if err == nil {
		if err := cfg.UnmarshalExtension("logging", &logCfg); err != nil {
			logrus.Warnf("Failed to parse 'logging' config: %v", err)
		}
	}

	entry := newLogger(component, logCfg, isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()))
	loggers[component] = entry
	return entry
}

func newLogger(component string, logCfg Config, interactive bool) *logrus.Entry {
	logger := logrus.New()

	levelStr := "info"
	if env := os.Getenv("SESSIONLINK_LOG_LEVEL"); env != "" {
		levelStr = env
	} else if logCfg.Level != "" {
		levelStr = logCfg.Level
	}
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if os.Getenv("SESSIONLINK_LOG_CALLER") == "true" || logCfg.ReportCaller {
		logger.SetReportCaller(true)
	}

	switch logCfg.Format.Preset {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "simple":
		logger.SetFormatter(&TextFormatter{Config: FormatConfig{
			DisableTimestamp: true,
			DisableComponent: true,
		}})
	default:
		logger.SetFormatter(&TextFormatter{Config: logCfg.Format})
	}

	var writers []io.Writer

	if logCfg.File.Enabled {
		if file, err := openLogFile(component, logCfg.File.Path); err == nil {
			writers = append(writers, file)
		} else {
			fmt.Fprintf(GetGlobalOutput(), "Failed to open log file: %v\n", err)
		}
	}

	if logToStderr(logCfg.Format.StructuredToStderr, level, interactive) {
		writers = append(writers, GetGlobalOutput())
	}

	switch len(writers) {
	case 0:
		logger.SetOutput(io.Discard)
	case 1:
		logger.SetOutput(writers[0])
	default:
		logger.SetOutput(io.MultiWriter(writers...))
	}

	return logger.WithField("component", component)
}

// logToStderr decides whether the console sink is used. In "auto" mode an
// interactive terminal only sees logs at warn and above unless debugging.
func logToStderr(mode string, level logrus.Level, interactive bool) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("SESSIONLINK_DEBUG") == "1" || level >= logrus.DebugLevel {
		return true
	}
	return !interactive || level <= logrus.WarnLevel
}

func openLogFile(component, path string) (*os.File, error) {
	if path == "" {
		dir := paths.LogDir()
		if dir == "" {
			return nil, fmt.Errorf("no log directory")
		}
		path = filepath.Join(dir, fmt.Sprintf("%s-%s.log", component, time.Now().Format("2006-01-02")))
	}
	path, err := pathutil.Expand(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
}

// SetLevel changes the level of every logger created so far.
func SetLevel(level logrus.Level) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, entry := range loggers {
		entry.Logger.SetLevel(level)
		if level >= logrus.DebugLevel && entry.Logger.Out == io.Discard {
			entry.Logger.SetOutput(GetGlobalOutput())
		}
	}
}

// SetFormatter changes the formatter of every logger created so far.
func SetFormatter(f logrus.Formatter) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, entry := range loggers {
		entry.Logger.SetFormatter(f)
	}
}
