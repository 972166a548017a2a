package cli

import (
	"encoding/json"
	"fmt"

	"github.com/grovetools/sessionlink/version"
	"github.com/spf13/cobra"
)

// NewVersionCommand prints the build info, as JSON with --json.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of sessionlink",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.GetInfo()
			if GetOptions(cmd).JSONOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}
			fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return nil
		},
	}
}
