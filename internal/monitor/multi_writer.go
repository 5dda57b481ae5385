package monitor

import (
	"errors"

	"birdnest/internal/violation"
)

// MultiWriter fans events out to multiple writers. A failing writer does not
// stop delivery to the others; all errors are joined.
type MultiWriter struct {
	writers []EventWriter
}

// NewMultiWriter creates a new MultiWriter, skipping nil writers.
func NewMultiWriter(ws ...EventWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range ws {
		if w != nil {
			mw.writers = append(mw.writers, w)
		}
	}
	return mw
}

// Len returns the number of wrapped writers.
func (mw *MultiWriter) Len() int { return len(mw.writers) }

// WriteEvent sends an event to all writers.
func (mw *MultiWriter) WriteEvent(e violation.Event) error {
	var errs []error
	for _, w := range mw.writers {
		if err := w.WriteEvent(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteEvents sends multiple events to all writers, using batch if supported.
func (mw *MultiWriter) WriteEvents(events []violation.Event) error {
	var errs []error
	for _, w := range mw.writers {
		if bw, ok := w.(batchEventWriter); ok {
			if err := bw.WriteEvents(events); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		for _, e := range events {
			if err := w.WriteEvent(e); err != nil {
				errs = append(errs, err)
				break
			}
		}
	}
	return errors.Join(errs...)
}
