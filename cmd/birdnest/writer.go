package main

import (
	"io"
	"os"

	"birdnest/internal/monitor"
)

// newWriters sets up the event writers based on flags and env vars. It
// returns nil when no sink is configured, and a cleanup function closing every
// writer that holds a resource.
func newWriters(printOnly bool, eventsFile string) (monitor.EventWriter, func(), error) {
	var ws []monitor.EventWriter
	cleanup := func() {
		for _, w := range ws {
			if c, ok := w.(io.Closer); ok {
				c.Close()
			}
		}
	}

	base, err := baseWriter(printOnly)
	if err != nil {
		return nil, nil, err
	}
	if base != nil {
		ws = append(ws, base)
	}
	if eventsFile != "" {
		fw, err := monitor.NewFileWriter(eventsFile)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		ws = append(ws, fw)
	}

	switch len(ws) {
	case 0:
		return nil, cleanup, nil
	case 1:
		return ws[0], cleanup, nil
	}
	return monitor.NewMultiWriter(ws...), cleanup, nil
}

// baseWriter chooses between STDOUT and GreptimeDB based on printOnly and
// GREPTIMEDB_ENDPOINT.
func baseWriter(printOnly bool) (monitor.EventWriter, error) {
	if printOnly {
		return monitor.NewJSONStdoutWriter(), nil
	}
	endpoint := os.Getenv("GREPTIMEDB_ENDPOINT")
	if endpoint == "" {
		return nil, nil
	}
	database := os.Getenv("GREPTIMEDB_DATABASE")
	if database == "" {
		database = "public"
	}
	w, err := monitor.NewGreptimeDBWriter(endpoint, database, os.Getenv("GREPTIMEDB_TABLE"))
	if err != nil {
		return nil, err
	}
	return w, nil
}
