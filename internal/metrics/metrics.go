// Prometheus collectors for the poll cycle
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prom records poll cycle metrics on its own registry.
type Prom struct {
	reg *prometheus.Registry

	cycles           prometheus.Counter
	cycleDuration    prometheus.Histogram
	fetchFailures    prometheus.Counter
	identityLookups  prometheus.Counter
	identityFailures prometheus.Counter
	created          prometheus.Counter
	expired          prometheus.Counter
	active           prometheus.Gauge
	batchSize        prometheus.Gauge
	lastCycle        prometheus.Gauge
}

// New creates the collectors and registers them on a fresh registry.
func New() *Prom {
	p := &Prom{
		reg: prometheus.NewRegistry(),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "birdnest_cycles_total",
			Help: "Poll cycles completed.",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "birdnest_cycle_duration_seconds",
			Help:    "Wall-clock time of one fetch, resolve, merge and prune pass.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		fetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "birdnest_fetch_failures_total",
			Help: "Drone feed fetches that failed and were replaced by an empty batch.",
		}),
		identityLookups: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "birdnest_identity_lookups_total",
			Help: "Pilot identity lookups attempted.",
		}),
		identityFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "birdnest_identity_failures_total",
			Help: "Pilot identity lookups that fell back to the Unknown identity.",
		}),
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "birdnest_violations_created_total",
			Help: "Violation records created.",
		}),
		expired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "birdnest_violations_expired_total",
			Help: "Violation records pruned after the retention window.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "birdnest_violations_active",
			Help: "Violation records currently held.",
		}),
		batchSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "birdnest_drones_in_batch",
			Help: "Drones in the most recent telemetry batch.",
		}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "birdnest_last_cycle_timestamp_seconds",
			Help: "Unix time at which the last cycle finished.",
		}),
	}
	p.reg.MustRegister(
		p.cycles, p.cycleDuration, p.fetchFailures,
		p.identityLookups, p.identityFailures,
		p.created, p.expired, p.active, p.batchSize, p.lastCycle,
	)
	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry.
func (p *Prom) Registry() *prometheus.Registry { return p.reg }

// FetchFailed counts a drone feed request that produced no batch.
func (p *Prom) FetchFailed() { p.fetchFailures.Inc() }

// IdentityLookup counts one pilot lookup and whether it failed.
func (p *Prom) IdentityLookup(ok bool) {
	p.identityLookups.Inc()
	if !ok {
		p.identityFailures.Inc()
	}
}

// CycleDone records the outcome of one completed cycle.
func (p *Prom) CycleDone(d time.Duration, drones, created, expired, active int) {
	p.cycles.Inc()
	p.cycleDuration.Observe(d.Seconds())
	p.batchSize.Set(float64(drones))
	p.created.Add(float64(created))
	p.expired.Add(float64(expired))
	p.active.Set(float64(active))
	p.lastCycle.SetToCurrentTime()
}
