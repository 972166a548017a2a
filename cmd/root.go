// Package cmd implements the sessionlink command tree.
package cmd

import (
	"github.com/grovetools/sessionlink/cli"
	"github.com/grovetools/sessionlink/pkg/profiling"
	"github.com/spf13/cobra"
)

// NewRootCmd assembles the sessionlink command tree.
func NewRootCmd() *cobra.Command {
	root := cli.NewStandardCommand(
		"sessionlink",
		"Stream a browsing session to a local host over a persistent channel",
	)

	profiler := profiling.NewCobraProfiler()
	profiler.AddFlags(root)
	root.PersistentPreRunE = profiler.PreRun
	root.PersistentPostRunE = profiler.PostRun

	root.AddCommand(NewRunCmd())
	root.AddCommand(NewPingCmd())
	root.AddCommand(NewHostCmd())
	root.AddCommand(NewSchemaCmd())
	root.AddCommand(NewConfigCmd())
	root.AddCommand(NewSessionsCmd())
	root.AddCommand(NewLogsCmd())
	root.AddCommand(NewPathsCmd())
	root.AddCommand(cli.NewVersionCommand())

	cli.ApplyStyledHelpRecursive(root)
	return root
}
