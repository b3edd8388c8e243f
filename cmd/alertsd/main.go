// Command alertsd keeps a local alert set in sync with the alerts service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rickgao/market-alerts/internal/app"
	"github.com/rickgao/market-alerts/internal/config"
	"github.com/rickgao/market-alerts/internal/logger"
	"github.com/rickgao/market-alerts/internal/version"
)

const defaultConfigPath = "configs/alertsd.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "alertsd",
		Short:         "alertsd syncs price alerts with the alerts service",
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "path to config file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the alerts daemon",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return run(ctx, configPath)
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadAndValidate(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (instance %s).\n", cfg.Instance.ID)
			return err
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "alertsd %s\n", version.String())
			return err
		},
	}

	rootCmd.AddCommand(runCmd, checkCmd, versionCmd, newTailCmd(&configPath), newMarketsCmd(&configPath))
	return rootCmd
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadAndValidate(ctx, configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("starting alertsd",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("config", configPath),
	)

	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	if err := a.Run(ctx); err != nil {
		log.Error("alertsd failed", zap.Error(err))
		return err
	}
	return nil
}
