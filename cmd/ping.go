package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/grovetools/sessionlink/cli"
	"github.com/grovetools/sessionlink/logging"
	"github.com/grovetools/sessionlink/pkg/session"
	"github.com/spf13/cobra"
)

type pingResult struct {
	Transport string `json:"transport"`
	OK        bool   `json:"ok"`
	RTTMs     int64  `json:"rttMs,omitempty"`
	Error     string `json:"error,omitempty"`
}

func NewPingCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Open a channel to the host and probe it once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cli.GetLogger(cmd, "ping")
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			t, err := session.NewTransport(cfg.Transport)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			rtt, err := session.Probe(ctx, t)

			result := pingResult{Transport: t.Name(), OK: err == nil, RTTMs: rtt.Milliseconds()}
			if err != nil {
				result.Error = err.Error()
			}

			if cli.GetOptions(cmd).JSONOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(result); encErr != nil {
					return encErr
				}
				return err
			}
			if err != nil {
				return err
			}

			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			pretty.Success(fmt.Sprintf("Host answered in %dms", result.RTTMs))
			pretty.Field("Transport", result.Transport)
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Give up after this long")
	return cmd
}
