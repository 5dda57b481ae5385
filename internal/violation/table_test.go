package violation

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"birdnest/internal/telemetry"
)

var (
	t0    = time.Date(2022, 12, 8, 10, 0, 0, 0, time.UTC)
	ada   = telemetry.PilotIdentity{PilotID: "P-1", FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com", Phone: "+358 1"}
	grace = telemetry.PilotIdentity{PilotID: "P-2", FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", Phone: "+358 2"}
)

func observe(serial string, dist float64, id *telemetry.PilotIdentity) Observation {
	o := Observation{
		Drone:    telemetry.DroneSnapshot{SerialNumber: serial, PositionX: 250000, PositionY: 250000 + dist},
		Distance: dist,
		Identity: telemetry.UnknownPilot,
	}
	if id != nil {
		o.Identity = *id
		o.Resolved = true
	}
	return o
}

func TestApplyCreatesRecord(t *testing.T) {
	tbl := NewTable(0)
	o := observe("S1", 50000, &ada)
	ch := tbl.Apply(t0, []Observation{o})

	if len(ch.Created) != 1 {
		t.Fatalf("expected 1 created, got %d", len(ch.Created))
	}
	r, ok := tbl.Get("S1")
	if !ok {
		t.Fatalf("record not found")
	}
	if r.Identity != ada {
		t.Fatalf("identity = %+v", r.Identity)
	}
	if r.ClosestDrone != o.Drone || r.ClosestDistance != 50000 {
		t.Fatalf("closest = %+v (%f)", r.ClosestDrone, r.ClosestDistance)
	}
	if !r.LastSeen.Equal(t0) || !r.FirstSeen.Equal(t0) {
		t.Fatalf("timestamps = %v / %v", r.FirstSeen, r.LastSeen)
	}
}

func TestApplyKeepsClosestDrone(t *testing.T) {
	tbl := NewTable(0)
	first := observe("S1", 50000, &ada)
	tbl.Apply(t0, []Observation{first})

	t1 := t0.Add(2 * time.Second)
	ch := tbl.Apply(t1, []Observation{observe("S1", 60000, nil)})

	r, _ := tbl.Get("S1")
	if r.ClosestDrone != first.Drone || r.ClosestDistance != 50000 {
		t.Fatalf("closest drone regressed: %+v", r)
	}
	if !r.LastSeen.Equal(t1) {
		t.Fatalf("last seen = %v, want %v", r.LastSeen, t1)
	}
	if len(ch.Updated) != 1 || len(ch.Closer) != 0 {
		t.Fatalf("unexpected changes: %+v", ch)
	}
}

func TestApplyReplacesOnStrictlyCloser(t *testing.T) {
	tbl := NewTable(0)
	tbl.Apply(t0, []Observation{observe("S1", 50000, &ada)})

	same := observe("S1", 50000, nil)
	same.Drone.Altitude = 999
	tbl.Apply(t0.Add(time.Second), []Observation{same})
	r, _ := tbl.Get("S1")
	if r.ClosestDrone.Altitude == 999 {
		t.Fatalf("equal distance must keep the first observed snapshot")
	}

	closer := observe("S1", 10000, nil)
	ch := tbl.Apply(t0.Add(2*time.Second), []Observation{closer})
	r, _ = tbl.Get("S1")
	if r.ClosestDrone != closer.Drone || r.ClosestDistance != 10000 {
		t.Fatalf("expected closer drone, got %+v", r)
	}
	if len(ch.Closer) != 1 {
		t.Fatalf("expected closer change")
	}
}

func TestDistanceNeverIncreases(t *testing.T) {
	tbl := NewTable(0)
	dists := []float64{80000, 70000, 90000, 30000, 30000, 99999, 1}
	prev := dists[0] + 1
	for i, d := range dists {
		tbl.Apply(t0.Add(time.Duration(i)*2*time.Second), []Observation{observe("S1", d, nil)})
		r, _ := tbl.Get("S1")
		if r.ClosestDistance > prev {
			t.Fatalf("step %d: distance grew from %f to %f", i, prev, r.ClosestDistance)
		}
		prev = r.ClosestDistance
	}
	if prev != 1 {
		t.Fatalf("final distance = %f, want 1", prev)
	}
}

func TestPruneAfterRetention(t *testing.T) {
	tbl := NewTable(0)
	tbl.Apply(t0, []Observation{observe("S1", 50000, &ada)})

	ch := tbl.Apply(t0.Add(600*time.Second), nil)
	if len(ch.Expired) != 0 || tbl.Len() != 1 {
		t.Fatalf("record at exactly the retention age must survive")
	}

	ch = tbl.Apply(t0.Add(605*time.Second), nil)
	if len(ch.Expired) != 1 || ch.Expired[0].Serial != "S1" {
		t.Fatalf("expected S1 to expire, got %+v", ch.Expired)
	}
	if _, ok := tbl.Get("S1"); ok {
		t.Fatalf("S1 should be gone")
	}
}

func TestPruneKeepsRefreshedRecords(t *testing.T) {
	tbl := NewTable(0)
	tbl.Apply(t0, []Observation{observe("S1", 50000, &ada), observe("S2", 50000, &grace)})
	tbl.Apply(t0.Add(500*time.Second), []Observation{observe("S2", 40000, nil)})

	now := t0.Add(700 * time.Second)
	expired := tbl.Prune(now)
	if len(expired) != 1 || expired[0].Serial != "S1" {
		t.Fatalf("expected only S1 to expire, got %+v", expired)
	}
	for _, r := range tbl.Records() {
		if now.Sub(r.LastSeen) > tbl.Retention() {
			t.Fatalf("stale record left: %+v", r)
		}
	}
}

func TestUnknownIdentityResolvedLater(t *testing.T) {
	tbl := NewTable(0)
	tbl.Apply(t0, []Observation{observe("S2", 50000, nil)})
	if !tbl.NeedsIdentity("S2") {
		t.Fatalf("record with unknown identity needs a lookup")
	}
	r, _ := tbl.Get("S2")
	if !r.Identity.IsUnknown() {
		t.Fatalf("expected Unknown identity, got %+v", r.Identity)
	}

	ch := tbl.Apply(t0.Add(2*time.Second), []Observation{observe("S2", 60000, &grace)})
	r, _ = tbl.Get("S2")
	if r.Identity != grace {
		t.Fatalf("identity = %+v, want %+v", r.Identity, grace)
	}
	if len(ch.Identified) != 1 {
		t.Fatalf("expected identified change")
	}
	if tbl.NeedsIdentity("S2") {
		t.Fatalf("resolved record must not need another lookup")
	}

	tbl.Apply(t0.Add(4*time.Second), []Observation{observe("S2", 60000, &ada)})
	r, _ = tbl.Get("S2")
	if r.Identity != grace {
		t.Fatalf("resolved identity was overwritten: %+v", r.Identity)
	}
}

func TestFailedLookupDoesNotClearIdentity(t *testing.T) {
	tbl := NewTable(0)
	tbl.Apply(t0, []Observation{observe("S1", 50000, &ada)})
	failed := observe("S1", 40000, nil)
	tbl.Apply(t0.Add(time.Second), []Observation{failed})
	r, _ := tbl.Get("S1")
	if r.Identity != ada {
		t.Fatalf("identity lost: %+v", r.Identity)
	}
}

func TestDuplicateSerialInBatch(t *testing.T) {
	tbl := NewTable(0)
	ch := tbl.Apply(t0, []Observation{observe("S1", 70000, nil), observe("S1", 20000, &ada)})
	if len(ch.Created) != 1 || len(ch.Updated) != 1 {
		t.Fatalf("unexpected changes: %+v", ch)
	}
	r, _ := tbl.Get("S1")
	if r.ClosestDistance != 20000 || r.Identity != ada {
		t.Fatalf("unexpected record: %+v", r)
	}
}

func TestEmptyApplyOnlyPrunes(t *testing.T) {
	tbl := NewTable(time.Minute)
	tbl.Apply(t0, []Observation{observe("S1", 50000, &ada), observe("S2", 50000, nil)})
	before := tbl.Records()

	ch := tbl.Apply(t0.Add(30*time.Second), nil)
	if !ch.Empty() {
		t.Fatalf("expected no changes, got %+v", ch)
	}
	after := tbl.Records()
	if len(after) != len(before) {
		t.Fatalf("table changed: %d -> %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("record %d changed: %+v -> %+v", i, before[i], after[i])
		}
	}

	ch = tbl.Apply(t0.Add(2*time.Minute), nil)
	if len(ch.Expired) != 2 || tbl.Len() != 0 {
		t.Fatalf("expected both records to expire, got %+v", ch.Expired)
	}
}

func TestListOrderAndView(t *testing.T) {
	tbl := NewTable(0)
	tbl.Apply(t0, []Observation{observe("S1", 50000, &ada)})
	tbl.Apply(t0.Add(2*time.Second), []Observation{observe("S2", 30000, &grace)})

	views := tbl.List()
	if len(views) != 2 {
		t.Fatalf("expected 2 views, got %d", len(views))
	}
	if views[0].SerialNumber != "S2" || views[1].SerialNumber != "S1" {
		t.Fatalf("expected most recent first, got %s, %s", views[0].SerialNumber, views[1].SerialNumber)
	}
	v := views[1]
	if v.PilotID != "P-1" || v.FirstName != "Ada" || v.Email != "ada@example.com" || v.Phone != "+358 1" || v.Dist != 50000 {
		t.Fatalf("unexpected view: %+v", v)
	}
	if got := v.LastSeenTime(); got.Unix() != t0.Unix() {
		t.Fatalf("last seen = %v, want %v", got, t0)
	}
}

func TestChangesEvents(t *testing.T) {
	tbl := NewTable(time.Minute)
	ch := tbl.Apply(t0, []Observation{observe("S1", 50000, nil)})
	events := ch.Events("c1", t0)
	if len(events) != 1 || events[0].Type != EventCreated || events[0].PilotID != telemetry.Unknown {
		t.Fatalf("unexpected events: %+v", events)
	}

	ch = tbl.Apply(t0.Add(time.Second), []Observation{observe("S1", 40000, &ada)})
	events = ch.Events("c2", t0)
	if len(events) != 2 || events[0].Type != EventIdentified || events[1].Type != EventCloser {
		t.Fatalf("unexpected events: %+v", events)
	}
	if events[1].PilotID != "P-1" || events[1].Distance != 40000 || events[1].CycleID != "c2" {
		t.Fatalf("unexpected closer event: %+v", events[1])
	}
}

// Readers must only ever see whole cycles: every cycle below writes the same
// LastSeen to all records, so a mixed snapshot means a torn read.
func TestConcurrentReadsSeeWholeCycles(t *testing.T) {
	tbl := NewTable(time.Hour)
	const serials = 20
	const cycles = 200

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan error, 1)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				views := tbl.List()
				for _, v := range views[min(1, len(views)):] {
					if v.LastSeen != views[0].LastSeen {
						select {
						case errs <- fmt.Errorf("torn read: %f vs %f", v.LastSeen, views[0].LastSeen):
						default:
						}
						return
					}
				}
			}
		}()
	}

	for c := 0; c < cycles; c++ {
		obs := make([]Observation, serials)
		for i := range obs {
			obs[i] = observe(fmt.Sprintf("S%d", i), float64(50000-c), nil)
		}
		tbl.Apply(t0.Add(time.Duration(c)*time.Second), obs)
	}
	close(stop)
	wg.Wait()

	select {
	case err := <-errs:
		t.Fatal(err)
	default:
	}
	if tbl.Len() != serials {
		t.Fatalf("expected %d records, got %d", serials, tbl.Len())
	}
}
