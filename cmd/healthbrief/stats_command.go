package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newStatsCommand(configFlag *string) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show statistics for recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(configFlag)
			if err != nil {
				return err
			}
			defer application.Close()

			records, err := application.RecentStats(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, r := range records {
				rows = append(rows, []string{
					r.RunAt.Local().Format(time.DateTime),
					strconv.Itoa(r.Fetched),
					strconv.Itoa(r.AfterDedup),
					strconv.Itoa(r.Scored),
					strconv.Itoa(r.Included),
					strconv.FormatBool(r.Delivered),
					strconv.Itoa(len(r.Errors)),
				})
			}

			out := renderTable(
				[]string{"Run At", "Fetched", "Deduped", "Scored", "Included", "Delivered", "Errors"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft, alignRight},
			)
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of runs to show")
	return cmd
}
