package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"birdnest/internal/logging"
	"birdnest/internal/upstream"
)

var (
	mockAddr string
	mockOpts upstream.Options
)

var mockUpstreamCmd = &cobra.Command{
	Use:   "mock-upstream",
	Short: "Serve a fake drone feed and pilot registry",
	Long:  "mock-upstream serves /drones (XML) and /pilots/{serial} (JSON) from a random-walking fleet for local runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		log := logging.FromContext(ctx)
		if !cmd.Flags().Changed("seed") {
			mockOpts.Seed = time.Now().UnixNano()
		}

		srv := &http.Server{
			Addr:              mockAddr,
			Handler:           upstream.NewServer(mockOpts, log),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		log.Info("mock upstream listening", "addr", mockAddr, "drones", mockOpts.Drones,
			"pilot_failure_rate", mockOpts.PilotFailureRate, "feed_failure_rate", mockOpts.FeedFailureRate)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	f := mockUpstreamCmd.Flags()
	f.StringVar(&mockAddr, "addr", ":9000", "Listen address")
	f.IntVar(&mockOpts.Drones, "drones", 10, "Number of simulated drones")
	f.Int64Var(&mockOpts.Seed, "seed", 0, "Random seed (defaults to the current time)")
	f.Float64Var(&mockOpts.PilotFailureRate, "pilot-failure-rate", 0.1, "Fraction of pilot lookups answered with 500")
	f.Float64Var(&mockOpts.FeedFailureRate, "feed-failure-rate", 0, "Fraction of drone feed requests answered with 503")
}
