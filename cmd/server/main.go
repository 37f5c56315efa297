package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/edwardhuahan/drawphone/internal/app"
	"github.com/edwardhuahan/drawphone/internal/config"
	transporthttp "github.com/edwardhuahan/drawphone/internal/transport/http"
)

func main() {
	if err := newCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drawphone",
		Short: "Telephone with drawings, as a party game server",
		Long: "Drawphone is a realtime party game server. Players pass chains of\n" +
			"alternating words and drawings around a circle, then review the\n" +
			"results together.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
		SilenceUsage: true,
	}

	defaults := config.Default()

	flags := cmd.Flags()
	flags.String("host", defaults.Server.Host, "address to listen on")
	flags.Int("port", defaults.Server.Port, "port to listen on")
	flags.String("env", defaults.Server.Env, "environment (development or production)")
	flags.String("admin-token", "", "bearer token for the admin endpoints")
	flags.Duration("cleanup-interval", defaults.Game.CleanupInterval, "how often abandoned games are removed")
	flags.String("log-level", defaults.Logging.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Logging.Format, "log format (text or json)")

	viper.SetEnvPrefix("DRAWPHONE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	viper.BindPFlags(flags)

	return cmd
}

func run() error {
	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	registry := app.NewRegistry(logger, cfg.Game.CleanupInterval)
	defer registry.Close()

	server := transporthttp.NewServer(cfg, registry, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

func loadConfig() *config.Config {
	cfg := config.Default()
	cfg.Server.Host = viper.GetString("host")
	cfg.Server.Port = viper.GetInt("port")
	cfg.Server.Env = viper.GetString("env")
	cfg.Server.AdminToken = viper.GetString("admin-token")
	cfg.Game.CleanupInterval = viper.GetDuration("cleanup-interval")
	cfg.Logging.Level = viper.GetString("log-level")
	cfg.Logging.Format = viper.GetString("log-format")
	return cfg
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Logging.Format == "json" || cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
