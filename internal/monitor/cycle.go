package monitor

import (
	"context"
	"time"

	"birdnest/internal/logging"
	"birdnest/internal/telemetry"
	"birdnest/internal/violation"
)

// Run executes cycles until ctx is done. A cycle always finishes before the
// interval wait starts, so cycles never overlap.
func (m *Monitor) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("starting monitor", "poll_interval", m.interval, "retention", m.table.Retention())

	for {
		if ctx.Err() != nil {
			log.Info("stopping monitor")
			return
		}
		m.Cycle(ctx)

		select {
		case <-ctx.Done():
			log.Info("stopping monitor")
			return
		case <-time.After(m.interval):
		}
	}
}

// Cycle performs one fetch, evaluate, merge and prune pass. Upstream failures
// are absorbed: a failed fetch becomes an empty batch and a failed lookup
// leaves the identity Unknown for a later cycle.
func (m *Monitor) Cycle(ctx context.Context) CycleReport {
	rep := CycleReport{ID: m.newID(), Start: m.now()}
	log := logging.FromContext(ctx).With("cycle_id", rep.ID)

	res := m.fetcher.Fetch(ctx)
	drones := res.Drones
	if res.Err != nil {
		rep.FetchErr = res.Err
		drones = nil
		m.recorder.FetchFailed()
		log.Warn("drone fetch failed, continuing with empty batch", "err", res.Err)
	}
	rep.Drones = len(drones)

	obs := m.evaluate(ctx, drones, &rep)
	rep.Violating = len(obs)

	now := m.now()
	rep.Changes = m.table.Apply(now, obs)
	rep.Duration = now.Sub(rep.Start)

	m.emit(ctx, rep.Changes.Events(rep.ID, now))
	m.recorder.CycleDone(rep.Duration, rep.Drones, len(rep.Changes.Created), len(rep.Changes.Expired), m.table.Len())

	log.Debug("cycle done",
		"drones", rep.Drones,
		"violating", rep.Violating,
		"created", len(rep.Changes.Created),
		"expired", len(rep.Changes.Expired),
		"lookups", rep.Lookups,
		"duration", rep.Duration)

	m.mu.Lock()
	m.last = rep
	m.hasCycled = true
	m.mu.Unlock()
	return rep
}

// evaluate keeps the drones inside the zone and resolves identities where the
// table still lacks one. No table lock is held during lookups.
func (m *Monitor) evaluate(ctx context.Context, drones []telemetry.DroneSnapshot, rep *CycleReport) []violation.Observation {
	log := logging.FromContext(ctx).With("cycle_id", rep.ID)
	resolved := make(map[string]telemetry.PilotIdentity)

	var obs []violation.Observation
	for _, d := range drones {
		dist := m.zone.Distance(d)
		if dist >= m.zone.Radius {
			continue
		}
		o := violation.Observation{Drone: d, Distance: dist, Identity: telemetry.UnknownPilot}

		if id, ok := resolved[d.SerialNumber]; ok {
			o.Identity, o.Resolved = id, true
		} else if m.table.NeedsIdentity(d.SerialNumber) {
			r := m.resolver.Resolve(ctx, d)
			rep.Lookups++
			m.recorder.IdentityLookup(r.Err == nil)
			if r.Err != nil {
				rep.LookupFailures++
				log.Warn("pilot lookup failed, identity stays unknown", "serial", d.SerialNumber, "err", r.Err)
			} else {
				o.Identity, o.Resolved = r.Identity, true
				resolved[d.SerialNumber] = r.Identity
			}
		}
		obs = append(obs, o)
	}
	return obs
}

func (m *Monitor) emit(ctx context.Context, events []violation.Event) {
	if len(events) == 0 || m.writer == nil {
		return
	}
	log := logging.FromContext(ctx)
	if bw, ok := m.writer.(batchEventWriter); ok {
		if err := bw.WriteEvents(events); err != nil {
			log.Error("event batch write failed", "err", err)
		}
		return
	}
	for _, e := range events {
		if err := m.writer.WriteEvent(e); err != nil {
			log.Error("event write failed", "serial", e.Serial, "type", e.Type, "err", err)
		}
	}
}
