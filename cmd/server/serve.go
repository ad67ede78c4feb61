package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-presence/internal/app"
	"github.com/vovakirdan/wirechat-presence/internal/config"
	applog "github.com/vovakirdan/wirechat-presence/internal/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the WebSocket server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().String("addr", "", "HTTP listen address")
	cmd.Flags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().String("store", "", "roster store driver (memory, sqlite, redis)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	bootLog := applog.New("info", "console")

	cfg, resolvedPath, err := config.Load(bootLog, configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var overrides config.Config
	overrides.Addr, _ = cmd.Flags().GetString("addr")
	overrides.LogLevel, _ = cmd.Flags().GetString("log-level")
	overrides.Store.Driver, _ = cmd.Flags().GetString("store")
	cfg.UpdateFrom(overrides)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := applog.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info().Str("config", resolvedPath).Str("store", cfg.Store.Driver).Msg("configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(&cfg, logger)
	if err != nil {
		return err
	}

	logger.Info().Str("addr", cfg.Addr).Str("version", version).Msg("starting wirechat presence server")
	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("server exited with error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
