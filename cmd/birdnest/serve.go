package main

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"birdnest/internal/api"
	"birdnest/internal/config"
	"birdnest/internal/logging"
	"birdnest/internal/metrics"
	"birdnest/internal/monitor"
	"birdnest/internal/telemetry"
	"birdnest/internal/violation"
)

var (
	servePrintOnly  bool
	serveEventsFile string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the poll cycle and serve the violation list",
	Long:  "serve polls the drone feed every poll_interval, keeps the violation table and exposes it on /, /ws, /healthz and /metrics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logging.FromContext(ctx)

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		writer, cleanup, err := newWriters(servePrintOnly, serveEventsFile)
		if err != nil {
			return err
		}
		defer cleanup()

		hub := api.NewHub(log)
		go hub.Run(ctx)

		sinks := []monitor.EventWriter{hub}
		if writer != nil {
			sinks = append(sinks, writer)
		}
		prom := metrics.New()
		m := newMonitor(cfg, monitor.NewMultiWriter(sinks...), prom)
		srv := api.NewServer(m, hub, prom.Handler(), log)

		go m.Run(ctx)

		log.Info("listening", "addr", cfg.ListenAddr, "drones_url", cfg.DronesURL, "pilots_url", cfg.PilotsURL)
		if err := srv.Start(ctx, cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		log.Info("birdnest stopped")
		return nil
	},
}

// newMonitor wires the HTTP upstream clients and a fresh table from cfg.
// writer and rec may be nil.
func newMonitor(cfg *config.MonitorConfig, writer monitor.EventWriter, rec monitor.Recorder) *monitor.Monitor {
	client := &http.Client{Timeout: cfg.HTTPTimeout}
	return monitor.New(monitor.Options{
		Fetcher:  telemetry.NewHTTPFetcher(cfg.DronesURL, client),
		Resolver: telemetry.NewHTTPResolver(cfg.PilotsURL, client),
		Table:    violation.NewTable(cfg.Retention),
		Zone:     cfg.TelemetryZone(),
		Interval: cfg.PollInterval,
		Writer:   writer,
		Recorder: rec,
	})
}

func init() {
	serveCmd.Flags().BoolVar(&servePrintOnly, "print-only", false, "Print violation events to STDOUT instead of writing to DB")
	serveCmd.Flags().StringVar(&serveEventsFile, "events-file", "", "Append violation events to this JSONL file")
}
