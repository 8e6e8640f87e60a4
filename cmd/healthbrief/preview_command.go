package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPreviewCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Render a newsletter to stdout without saving or sending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(configFlag)
			if err != nil {
				return err
			}
			defer application.Close()

			doc, stats, err := application.Preview(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), doc.Body)
			fmt.Fprintf(cmd.ErrOrStderr(),
				"rendered via %s: fetched %d, included %d\n",
				doc.Source, stats.Fetched, stats.Included)
			return nil
		},
	}
}
