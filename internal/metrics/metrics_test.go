package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCycleDone(t *testing.T) {
	p := New()
	p.CycleDone(150*time.Millisecond, 7, 2, 1, 4)
	p.CycleDone(50*time.Millisecond, 3, 1, 0, 5)

	if got := testutil.ToFloat64(p.cycles); got != 2 {
		t.Fatalf("cycles = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.created); got != 3 {
		t.Fatalf("created = %v, want 3", got)
	}
	if got := testutil.ToFloat64(p.expired); got != 1 {
		t.Fatalf("expired = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.active); got != 5 {
		t.Fatalf("active = %v, want 5", got)
	}
	if got := testutil.ToFloat64(p.batchSize); got != 3 {
		t.Fatalf("batch size = %v, want 3", got)
	}
}

func TestFailures(t *testing.T) {
	p := New()
	p.FetchFailed()
	p.IdentityLookup(true)
	p.IdentityLookup(false)
	p.IdentityLookup(false)

	if got := testutil.ToFloat64(p.fetchFailures); got != 1 {
		t.Fatalf("fetch failures = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.identityLookups); got != 3 {
		t.Fatalf("lookups = %v, want 3", got)
	}
	if got := testutil.ToFloat64(p.identityFailures); got != 2 {
		t.Fatalf("identity failures = %v, want 2", got)
	}
}

func TestHandler(t *testing.T) {
	p := New()
	p.FetchFailed()
	srv := httptest.NewServer(p.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "birdnest_fetch_failures_total 1") {
		t.Fatalf("metric missing from exposition:\n%s", body)
	}
}
