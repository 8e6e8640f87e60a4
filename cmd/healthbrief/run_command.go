package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRunCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Generate and deliver a newsletter now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(configFlag)
			if err != nil {
				return err
			}
			defer application.Close()

			stats, err := application.RunOnce(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"fetched %d, after dedup %d, scored %d, included %d, delivered %v\n",
				stats.Fetched, stats.AfterDedup, stats.Scored, stats.Included, stats.Delivered)
			for _, e := range stats.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: %s: %s\n", e.Source, e.Message)
			}
			return nil
		},
	}
}
