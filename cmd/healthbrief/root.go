package main

import (
	"github.com/spf13/cobra"

	"healthbrief/internal/app"
	"healthbrief/internal/config"
	"healthbrief/internal/logging"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "healthbrief",
		Short:         "Weekly healthcare newsletter generator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(newRunCommand(&configFlag))
	rootCmd.AddCommand(newPreviewCommand(&configFlag))
	rootCmd.AddCommand(newScheduleCommand(&configFlag))
	rootCmd.AddCommand(newNextCommand(&configFlag))
	rootCmd.AddCommand(newStatsCommand(&configFlag))

	return rootCmd
}

func buildApp(configFlag *string) (*app.Application, error) {
	cfg := config.Load(*configFlag)
	logger := logging.New(cfg.Logging.Level)
	return app.New(cfg, logger)
}
