package telemetry

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FetchResult is the outcome of one telemetry fetch. A non-nil Err marks a
// recoverable failure and Drones is nil in that case.
type FetchResult struct {
	Drones       []DroneSnapshot
	SnapshotTime time.Time
	Err          error
}

// Fetcher retrieves the current batch of drone snapshots.
type Fetcher interface {
	Fetch(ctx context.Context) FetchResult
}

// report mirrors the XML document served by the drone feed.
type report struct {
	XMLName xml.Name `xml:"report"`
	Capture struct {
		SnapshotTimestamp string          `xml:"snapshotTimestamp,attr"`
		Drones            []DroneSnapshot `xml:"drone"`
	} `xml:"capture"`
}

// HTTPFetcher reads the drone feed over HTTP.
type HTTPFetcher struct {
	url    string
	client *http.Client
}

// NewHTTPFetcher creates a fetcher for url. A nil client uses http.DefaultClient.
func NewHTTPFetcher(url string, client *http.Client) *HTTPFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPFetcher{url: url, client: client}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context) FetchResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return FetchResult{Err: fmt.Errorf("build drones request: %w", err)}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return FetchResult{Err: fmt.Errorf("get drones: %w", err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return FetchResult{Err: fmt.Errorf("get drones: unexpected status %s", resp.Status)}
	}
	return ParseReport(resp.Body)
}

// ParseReport decodes a drone feed document.
func ParseReport(r io.Reader) FetchResult {
	var rep report
	if err := xml.NewDecoder(r).Decode(&rep); err != nil {
		return FetchResult{Err: fmt.Errorf("parse drones: %w", err)}
	}
	for i, d := range rep.Capture.Drones {
		if d.SerialNumber == "" {
			return FetchResult{Err: fmt.Errorf("parse drones: drone %d has no serial number", i)}
		}
	}
	res := FetchResult{Drones: rep.Capture.Drones}
	if ts, err := time.Parse(time.RFC3339Nano, rep.Capture.SnapshotTimestamp); err == nil {
		res.SnapshotTime = ts
	}
	if res.Drones == nil {
		res.Drones = []DroneSnapshot{}
	}
	return res
}
