package monitor

import "birdnest/internal/violation"

// EventWriter receives violation events produced by each cycle.
type EventWriter interface {
	WriteEvent(violation.Event) error
}

// Optional: writers may support batch mode.
type batchEventWriter interface {
	WriteEvents([]violation.Event) error
}
