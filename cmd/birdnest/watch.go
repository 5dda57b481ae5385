package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"birdnest/internal/logging"
	"birdnest/internal/tui"
)

var (
	watchURL      string
	watchInterval time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow a running server's violation list",
	Long:  "watch polls the list endpoint of a running server and renders it as a live table. When STDOUT is not a terminal it prints one JSON line per poll instead.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := &http.Client{Timeout: watchInterval + 5*time.Second}
		if term.IsTerminal(int(os.Stdout.Fd())) {
			return tui.Run(cmd.Context(), watchURL, client, watchInterval)
		}
		return watchJSON(cmd.Context(), cmd.OutOrStdout(), client, watchURL, watchInterval)
	},
}

// watchJSON polls url until ctx is done, writing each list as one JSON line.
// Poll errors are logged and the loop continues.
func watchJSON(ctx context.Context, out io.Writer, client *http.Client, url string, interval time.Duration) error {
	log := logging.FromContext(ctx)
	enc := json.NewEncoder(out)
	for {
		views, err := tui.FetchViews(ctx, client, url)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn("poll failed", "url", url, "err", err)
		} else if err := enc.Encode(views); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

func init() {
	watchCmd.Flags().StringVar(&watchURL, "url", "http://localhost:8000/violations", "List endpoint of a running birdnest server")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "Poll interval")
}
