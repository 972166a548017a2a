package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/grovetools/sessionlink/cli"
	"github.com/grovetools/sessionlink/logging"
	"github.com/grovetools/sessionlink/state"
	"github.com/grovetools/sessionlink/util/pathutil"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func NewSessionsCmd() *cobra.Command {
	var archive string

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List sessions archived by the host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(archive)
			if err != nil {
				return err
			}
			recs, err := store.List()
			if err != nil {
				return err
			}

			if cli.GetOptions(cmd).JSONOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(recs)
			}

			pretty := logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout())
			if len(recs) == 0 {
				pretty.InfoPretty("No archived sessions")
				return nil
			}
			for i, rec := range recs {
				if i > 0 {
					pretty.Divider()
				}
				pretty.Field("Session", rec.SessionID)
				pretty.Field("URL", rec.URL)
				pretty.Field("Pages", len(rec.Pages))
				pretty.Field("Messages", len(rec.ChatMessages))
				pretty.Field("Active", time.UnixMilli(rec.LastActivity).Format(time.RFC3339))
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&archive, "archive", state.DefaultDir(), "Session archive directory")

	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print an archived session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(archive)
			if err != nil {
				return err
			}
			rec, err := store.Load(args[0])
			if err != nil {
				return err
			}
			if cli.GetOptions(cmd).JSONOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}
			data, err := yaml.Marshal(rec)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an archived session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(archive)
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			logging.NewPrettyLogger().WithWriter(cmd.OutOrStdout()).Success("Deleted " + args[0])
			return nil
		},
	})
	return cmd
}

func openStore(archive string) (*state.Store, error) {
	dir, err := pathutil.Expand(archive)
	if err != nil {
		return nil, err
	}
	return state.NewStore(dir), nil
}
