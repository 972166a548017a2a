package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/sessionlink/pkg/paths"
	"github.com/spf13/cobra"
)

// PathsOutput represents the directories sessionlink reads and writes.
type PathsOutput struct {
	ConfigDir string `json:"config_dir"`
	StateDir  string `json:"state_dir"`
	LogDir    string `json:"log_dir"`
	Socket    string `json:"socket"`
}

func NewPathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print the paths used by sessionlink",
		Long: `Print the paths used by sessionlink as JSON.

- config_dir: user configuration (sessionlink.yml)
- state_dir: persistent state
- log_dir: log files when file logging is enabled
- socket: the default host socket`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := PathsOutput{
				ConfigDir: paths.ConfigDir(),
				StateDir:  paths.StateDir(),
				LogDir:    paths.LogDir(),
				Socket:    paths.SocketPath(),
			}

			jsonData, err := json.MarshalIndent(output, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to marshal paths to JSON: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonData))
			return nil
		},
	}
}
