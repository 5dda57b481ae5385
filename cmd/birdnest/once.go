package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"birdnest/internal/config"
	"birdnest/internal/logging"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single poll cycle and print the violation list",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runOnce(cmd.Context(), cfg, cmd.OutOrStdout())
	},
}

// runOnce performs one cycle and writes the resulting list as indented JSON.
// A failed fetch is reported as an error after the (empty) list is written.
func runOnce(ctx context.Context, cfg *config.MonitorConfig, out io.Writer) error {
	m := newMonitor(cfg, nil, nil)
	rep := m.Cycle(ctx)
	logging.FromContext(ctx).Info("cycle done",
		"drones", rep.Drones,
		"violating", rep.Violating,
		"lookups", rep.Lookups,
		"lookup_failures", rep.LookupFailures)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m.Table().List()); err != nil {
		return err
	}
	if rep.FetchErr != nil {
		return fmt.Errorf("drone fetch failed: %w", rep.FetchErr)
	}
	return nil
}
