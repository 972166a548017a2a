// Package cli holds the shared plumbing of the sessionlink commands: standard
// flags, styled help, config loading and error reporting.
package cli

import (
	"os"

	"github.com/grovetools/sessionlink/config"
	"github.com/grovetools/sessionlink/errors"
	"github.com/grovetools/sessionlink/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// CommandOptions holds the standard flags.
type CommandOptions struct {
	ConfigFile string
	Verbose    bool
	JSONOutput bool
}

// NewStandardCommand creates a command carrying the standard flags.
func NewStandardCommand(use, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           use,
		Short:         short,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	cmd.PersistentFlags().StringP("config", "c", "", "Path to sessionlink.yml or sessionlink.toml")

	SetStyledHelp(cmd)
	return cmd
}

// GetOptions extracts the standard flags from a command.
func GetOptions(cmd *cobra.Command) CommandOptions {
	configFile, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	return CommandOptions{
		ConfigFile: configFile,
		Verbose:    verbose,
		JSONOutput: jsonOutput,
	}
}

// GetLogger returns the component logger with the flags applied to every
// logger in the process.
func GetLogger(cmd *cobra.Command, component string) *logrus.Entry {
	entry := logging.NewLogger(component)
	opts := GetOptions(cmd)
	if opts.Verbose {
		logging.SetLevel(logrus.DebugLevel)
	}
	if opts.JSONOutput {
		logging.SetFormatter(&logrus.JSONFormatter{})
	}
	return entry
}

// LoadConfig loads the file named by --config, or the one found from the
// working directory. With no file anywhere it returns the defaults.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	opts := GetOptions(cmd)
	if opts.ConfigFile != "" {
		return config.Load(opts.ConfigFile)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadFrom(cwd)
	if errors.Is(err, errors.ErrCodeConfigNotFound) {
		return config.Default(), nil
	}
	return cfg, err
}
