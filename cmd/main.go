package main

import (
	"context"
	"fmt"
	"os"

	"github.com/okian/homedash/internal/config"
	"github.com/okian/homedash/pkg/logger"
	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=...".
var version = "dev" //nolint:gochecknoglobals // build information

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Running without a subcommand serves.
func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "homedash",
		Short: "Data refresh service for the home dashboard",
		Long: `homedash keeps the home dashboard's data fresh: calendar agenda,
public transport departure boards with service alerts, weather and radar
frames. It polls every source on its own interval and serves the latest
values over HTTP.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if cfgFile != "" {
				return os.Setenv(config.EnvConfigFile, cfgFile)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (overrides $"+config.EnvConfigFile+")")

	serve := newServeCmd()
	root.RunE = serve.RunE
	root.AddCommand(serve, newLoginCmd(), newStatusCmd(), newRadarCmd())
	return root
}

// loadConfig loads configuration and applies its logging settings.
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return nil, fmt.Errorf("initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}
