// Monitor drives the periodic fetch, evaluate, merge and prune cycle
package monitor

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"birdnest/internal/telemetry"
	"birdnest/internal/violation"
)

// DefaultInterval is the pause between two cycles.
const DefaultInterval = 2 * time.Second

// Recorder receives cycle measurements. metrics.Prom implements it.
type Recorder interface {
	FetchFailed()
	IdentityLookup(ok bool)
	CycleDone(d time.Duration, drones, created, expired, active int)
}

type nopRecorder struct{}

func (nopRecorder) FetchFailed()                                {}
func (nopRecorder) IdentityLookup(bool)                         {}
func (nopRecorder) CycleDone(time.Duration, int, int, int, int) {}

// Options configures a Monitor. Fetcher, Resolver and Table are required.
type Options struct {
	Fetcher  telemetry.Fetcher
	Resolver telemetry.Resolver
	Table    *violation.Table
	Zone     telemetry.Zone
	Interval time.Duration
	Writer   EventWriter // optional
	Recorder Recorder    // optional
}

// CycleReport describes one completed cycle.
type CycleReport struct {
	ID             string
	Start          time.Time
	Duration       time.Duration
	Drones         int
	Violating      int
	Lookups        int
	LookupFailures int
	FetchErr       error
	Changes        violation.Changes
}

// Monitor is the sole writer of the violation table.
type Monitor struct {
	fetcher  telemetry.Fetcher
	resolver telemetry.Resolver
	table    *violation.Table
	zone     telemetry.Zone
	interval time.Duration
	writer   EventWriter
	recorder Recorder
	now      func() time.Time
	newID    func() string

	mu        sync.Mutex
	last      CycleReport
	hasCycled bool
}

// New creates a Monitor from opts, filling in defaults for the zone and
// interval when they are unset.
func New(opts Options) *Monitor {
	zone := opts.Zone
	if zone.Radius <= 0 {
		zone = telemetry.DefaultZone()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	rec := opts.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Monitor{
		fetcher:  opts.Fetcher,
		resolver: opts.Resolver,
		table:    opts.Table,
		zone:     zone,
		interval: interval,
		writer:   opts.Writer,
		recorder: rec,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Table returns the table the monitor writes to.
func (m *Monitor) Table() *violation.Table { return m.table }

// Interval returns the pause between cycles.
func (m *Monitor) Interval() time.Duration { return m.interval }

// LastCycle returns the report of the most recent cycle. ok is false before
// the first cycle has finished.
func (m *Monitor) LastCycle() (rep CycleReport, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, m.hasCycled
}
