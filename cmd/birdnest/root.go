package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"birdnest/internal/config"
	"birdnest/internal/logging"
)

var (
	configPath string
	schemaPath string
	logOpts    logging.Options
	logCloser  io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "birdnest",
	Short: "No-drone-zone violation monitor",
	Long:  "birdnest polls a drone telemetry feed, records pilots whose drones enter the no-drone zone and serves the list over HTTP.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log, closer := logging.NewWithOptions(logOpts)
		logCloser = closer
		slog.SetDefault(log)
		cmd.SetContext(logging.NewContext(cmd.Context(), log))
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logCloser != nil {
			return logCloser.Close()
		}
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.MonitorConfig, error) {
	return config.Load(configPath, schemaPath)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "config/birdnest.yaml", "Path to monitor configuration YAML")
	pf.StringVar(&schemaPath, "schema", "schemas/birdnest.cue", "Path to CUE schema file")
	pf.StringVar(&logOpts.Level, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&logOpts.Format, "log-format", "text", "Log format (text or json)")
	pf.StringVar(&logOpts.File, "log-file", "", "Also write logs to this rotated file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(onceCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(mockUpstreamCmd)
}
