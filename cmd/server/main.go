package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cohortlabs/cohort-hub/internal/app"
	"github.com/cohortlabs/cohort-hub/internal/config"
	"github.com/cohortlabs/cohort-hub/internal/log"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "cohort-hub",
		Short: "Real-time event hub for cohort dashboards",
		Long: `cohort-hub serves per-cohort live state over WebSocket and REST:
stream status, polls, chat, leaderboard, and notifications.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New("info")

			cfg, cfgPath, err := config.Load(logger, configPath)
			if err != nil {
				return err
			}
			logger = log.New(cfg.LogLevel)
			logger.Info().Str("config", cfgPath).Msg("configuration loaded")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(cfg, logger)
			if err != nil {
				return err
			}

			logger.Info().Str("addr", cfg.Addr).Msg("starting cohort hub")
			if err := application.Run(ctx); err != nil {
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
