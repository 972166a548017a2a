// Package config loads sessionlink configuration from YAML or TOML files.
package config

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/grovetools/sessionlink/errors"
	"github.com/grovetools/sessionlink/pkg/paths"
	"github.com/pelletier/go-toml/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

// File formats.
const (
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

var configNames = []string{
	"sessionlink.yml",
	"sessionlink.yaml",
	"sessionlink.toml",
	".sessionlink.yml",
	".sessionlink.yaml",
	".sessionlink.toml",
}

// Load reads and parses a configuration file. The format follows the file
// extension.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigNotFound(path)
		}
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to read config file").
			WithDetail("path", path)
	}

	cfg, err := LoadFromBytes(data, FormatOf(path))
	if err != nil {
		if le, ok := err.(*errors.LinkError); ok {
			return nil, le.WithDetail("path", path)
		}
		return nil, err
	}
	return cfg, nil
}

// LoadDefault finds and loads the configuration for the current directory.
func LoadDefault() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to get current directory")
	}
	return LoadFrom(cwd)
}

// LoadFrom finds the configuration file for startDir and loads it.
func LoadFrom(startDir string) (*Config, error) {
	return LoadFromWithLogger(startDir, logrus.New())
}

func LoadFromWithLogger(startDir string, logger *logrus.Logger) (*Config, error) {
	path, err := FindConfigFile(startDir)
	if err != nil {
		return nil, err
	}
	logger.WithField("path", path).Debug("Loading configuration")

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if logger.IsLevelEnabled(logrus.DebugLevel) {
		if data, err := yaml.Marshal(cfg); err == nil {
			logger.Debugf("Loaded configuration:\n%s", string(data))
		}
	}
	return cfg, nil
}

// LoadFromBytes parses, defaults and validates a configuration.
func LoadFromBytes(data []byte, format string) (*Config, error) {
	expanded := []byte(expandEnvVars(string(data)))

	var cfg Config
	switch format {
	case FormatTOML:
		if err := decodeTOML(expanded, &cfg); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse TOML configuration")
		}
	default:
		if len(bytes.TrimSpace(expanded)) > 0 {
			if err := yaml.Unmarshal(expanded, &cfg); err != nil {
				return nil, errors.Wrap(err, errors.ErrCodeConfigInvalid, "failed to parse YAML configuration")
			}
		}
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// decodeTOML fills cfg and collects unknown top-level tables as extensions.
func decodeTOML(data []byte, cfg *Config) error {
	if err := toml.Unmarshal(data, cfg); err != nil {
		return err
	}
	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, v := range raw {
		switch key {
		case "version", "connection", "aggregator", "transport", "session", "metrics":
			continue
		}
		if cfg.Extensions == nil {
			cfg.Extensions = make(map[string]interface{})
		}
		cfg.Extensions[key] = v
	}
	return nil
}

// FormatOf maps a file name to its format.
func FormatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}
	return FormatYAML
}

// FindConfigFile searches from startDir up to the filesystem root, then the
// user config directory.
func FindConfigFile(startDir string) (string, error) {
	dir := startDir
	for {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if configDir := paths.ConfigDir(); configDir != "" {
		for _, name := range configNames[:3] {
			path := filepath.Join(configDir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				return path, nil
			}
		}
	}

	return "", errors.ConfigNotFound(startDir).WithDetail("searchPath", startDir)
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment values.
func expandEnvVars(content string) string {
	return envVarRegex.ReplaceAllStringFunc(content, func(match string) string {
		varName := envVarRegex.FindStringSubmatch(match)[1]

		parts := strings.SplitN(varName, ":-", 2)
		varName = parts[0]
		defaultValue := ""
		if len(parts) > 1 {
			defaultValue = parts[1]
		}

		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}
