package main

import (
	"path/filepath"
	"testing"

	"birdnest/internal/monitor"
	"birdnest/internal/violation"
)

func TestNewWritersPrintOnly(t *testing.T) {
	w, cleanup, err := newWriters(true, "")
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if _, ok := w.(*monitor.JSONStdoutWriter); !ok {
		t.Fatalf("expected *monitor.JSONStdoutWriter, got %T", w)
	}
}

func TestNewWritersNoSink(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	w, cleanup, err := newWriters(false, "")
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	cleanup()
	if w != nil {
		t.Fatalf("expected no writer, got %T", w)
	}
}

func TestNewWritersEventsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.jsonl")
	w, cleanup, err := newWriters(true, path)
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	defer cleanup()
	mw, ok := w.(*monitor.MultiWriter)
	if !ok {
		t.Fatalf("expected *monitor.MultiWriter, got %T", w)
	}
	if mw.Len() != 2 {
		t.Fatalf("expected 2 writers, got %d", mw.Len())
	}
}

func TestNewWritersEventsFileOnly(t *testing.T) {
	t.Setenv("GREPTIMEDB_ENDPOINT", "")
	w, cleanup, err := newWriters(false, filepath.Join(t.TempDir(), "events.jsonl"))
	if err != nil {
		t.Fatalf("newWriters returned error: %v", err)
	}
	fw, ok := w.(*monitor.FileWriter)
	if !ok {
		t.Fatalf("expected *monitor.FileWriter, got %T", w)
	}
	cleanup()
	if err := fw.WriteEvent(violation.Event{Serial: "SN-1"}); err == nil {
		t.Fatalf("expected write to fail after cleanup closed the file")
	}
}
