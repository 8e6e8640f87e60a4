package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newScheduleCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the weekly schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(configFlag)
			if err != nil {
				return err
			}
			defer application.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			fmt.Fprintf(cmd.OutOrStdout(), "next run: %s\n", application.NextRun().Format(time.RFC1123))
			return application.Schedule(ctx)
		},
	}
}

func newNextCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Print the next scheduled generation time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(configFlag)
			if err != nil {
				return err
			}
			defer application.Close()

			fmt.Fprintln(cmd.OutOrStdout(), application.NextRun().Format(time.RFC1123))
			return nil
		},
	}
}
