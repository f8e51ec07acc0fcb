package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/killallgit/route-planner-api/pkg/config"
	"github.com/killallgit/route-planner-api/pkg/logger"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "route-planner-api",
	Short: "Route Planner API server",
	Long: `Route Planner API - place search and route estimation

Resolves free-text places through Nominatim, drives the route search modal
over WebSocket and estimates distance and travel time for a vehicle
category in a background worker pool.

Features:
  • Debounced place search with cached geocoding
  • Five vehicle categories with per-category average speeds
  • Asynchronous route searches backed by a SQLite job queue
  • Memory or Redis geocoding cache`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd returns the root command (exported for testing)
func NewRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("config", config.DefaultConfigPath, "settings file")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error), overrides config")
	rootCmd.PersistentFlags().Bool("json-logs", false, "enable JSON formatted logs")
}

// loadConfig reads the settings file named by --config. Only the commands
// that need configuration call it.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.DefaultConfigPath
	}

	if err := config.InitFile(path); err != nil {
		return nil, fmt.Errorf("failed to initialize config: %w", err)
	}
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the process logger; flags win over the config file
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	opts := logger.Options{Output: cmd.ErrOrStderr()}
	if cfg != nil {
		opts.Level = cfg.Logging.Level
		opts.Format = cfg.Logging.Format
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		opts.Level = level
	}
	if jsonLogs, _ := cmd.Flags().GetBool("json-logs"); jsonLogs {
		opts.Format = "json"
	}

	log := logger.New(opts)
	slog.SetDefault(log)
	return log
}
