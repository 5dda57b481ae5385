// Package violation keeps the rolling table of pilots who entered the no-drone zone.
//
// The table is written by a single poll cycle at a time and read concurrently
// by request handlers. Every mutation of one cycle (create, update and prune)
// happens under one exclusive lock so readers never observe a half-applied
// cycle. Upstream lookups are done by the caller before Apply and never
// under the lock.
package violation

import (
	"sort"
	"sync"
	"time"

	"birdnest/internal/telemetry"
)

// DefaultRetention is how long a record survives without a fresh violation.
const DefaultRetention = 10 * time.Minute

// Record is the violation history of one drone serial number.
type Record struct {
	Serial          string
	Identity        telemetry.PilotIdentity
	ClosestDrone    telemetry.DroneSnapshot
	ClosestDistance float64
	FirstSeen       time.Time
	LastSeen        time.Time
}

// Observation is one violating snapshot prepared by the poll cycle. Resolved
// is set when Identity came from a successful lookup made this cycle.
type Observation struct {
	Drone    telemetry.DroneSnapshot
	Distance float64
	Identity telemetry.PilotIdentity
	Resolved bool
}

// Changes summarises what one Apply did to the table.
type Changes struct {
	Created    []Record
	Updated    []Record
	Identified []Record
	Closer     []Record
	Expired    []Record
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Created)+len(c.Updated)+len(c.Expired) == 0
}

// Table maps drone serial numbers to violation records.
type Table struct {
	mu        sync.RWMutex
	records   map[string]*Record
	retention time.Duration
}

// NewTable creates an empty table. A non-positive retention uses DefaultRetention.
func NewTable(retention time.Duration) *Table {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Table{records: make(map[string]*Record), retention: retention}
}

// Retention returns the age after which records are pruned.
func (t *Table) Retention() time.Duration {
	return t.retention
}

// NeedsIdentity reports whether a lookup should be attempted for serial:
// there is no record yet, or the record still holds the Unknown identity.
func (t *Table) NeedsIdentity(serial string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.records[serial]
	return !ok || r.Identity.IsUnknown()
}

// Apply merges one cycle's violating observations and prunes stale records.
// Observations are processed in order; a serial seen twice in a batch is
// created by the first and updated by the second.
func (t *Table) Apply(now time.Time, obs []Observation) Changes {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ch Changes
	for _, o := range obs {
		serial := o.Drone.SerialNumber
		r, ok := t.records[serial]
		if !ok {
			id := telemetry.UnknownPilot
			if o.Resolved {
				id = o.Identity
			}
			r = &Record{
				Serial:          serial,
				Identity:        id,
				ClosestDrone:    o.Drone,
				ClosestDistance: o.Distance,
				FirstSeen:       now,
				LastSeen:        now,
			}
			t.records[serial] = r
			ch.Created = append(ch.Created, *r)
			continue
		}

		r.LastSeen = now
		// Identity moves from Unknown to resolved once and is then fixed.
		if r.Identity.IsUnknown() && o.Resolved && !o.Identity.IsUnknown() {
			r.Identity = o.Identity
			ch.Identified = append(ch.Identified, *r)
		}
		if o.Distance < r.ClosestDistance {
			r.ClosestDrone = o.Drone
			r.ClosestDistance = o.Distance
			ch.Closer = append(ch.Closer, *r)
		}
		ch.Updated = append(ch.Updated, *r)
	}
	ch.Expired = t.prune(now)
	return ch
}

// Prune removes every record last seen more than the retention ago.
func (t *Table) Prune(now time.Time) []Record {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.prune(now)
}

func (t *Table) prune(now time.Time) []Record {
	var expired []Record
	for serial, r := range t.records {
		if now.Sub(r.LastSeen) > t.retention {
			expired = append(expired, *r)
			delete(t.records, serial)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].Serial < expired[j].Serial })
	return expired
}

// Get returns a copy of the record for serial.
func (t *Table) Get(serial string) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.records[serial]
	if !ok {
		return Record{}, false
	}
	return *r, true
}

// Len returns the number of records.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// Records returns copies of all records, most recently seen first.
func (t *Table) Records() []Record {
	t.mu.RLock()
	out := make([]Record, 0, len(t.records))
	for _, r := range t.records {
		out = append(out, *r)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastSeen.Equal(out[j].LastSeen) {
			return out[i].LastSeen.After(out[j].LastSeen)
		}
		return out[i].Serial < out[j].Serial
	})
	return out
}

// List returns a point-in-time view of the table for external consumers.
func (t *Table) List() []View {
	recs := t.Records()
	views := make([]View, len(recs))
	for i, r := range recs {
		views[i] = r.View()
	}
	return views
}
