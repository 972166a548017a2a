package cmd

import (
	"fmt"

	"github.com/grovetools/sessionlink/config"
	"github.com/grovetools/sessionlink/schema"
	"github.com/spf13/cobra"
)

func NewSchemaCmd() *cobra.Command {
	var inbound bool

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the configuration JSON Schema",
		Long: `Print the JSON Schema of sessionlink.yml, generated from the config types.
With --inbound, print the schema every message from the host is validated
against instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if inbound {
				_, err := cmd.OutOrStdout().Write(schema.Schema())
				return err
			}
			data, err := config.GenerateSchema()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&inbound, "inbound", false, "Print the inbound message schema")
	return cmd
}
