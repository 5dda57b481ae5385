// Package upstream simulates the drone feed and pilot registry for local runs.
package upstream

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"

	"birdnest/internal/telemetry"
)

// Field is the square monitored by the feed, in feed units.
const Field = 500000.0

var models = []struct {
	name, manufacturer string
	speedMin, speedMax float64
}{
	{"HRP-DX", "ProDröne", 2000, 6000},
	{"Mosquito", "MegaBuzzer Corp", 4000, 9000},
	{"Falcon", "BirdWatch Ltd", 3000, 7000},
	{"Eagle", "DroneGoat Inc", 1500, 4000},
}

type simDrone struct {
	snap  telemetry.DroneSnapshot
	pilot telemetry.PilotIdentity
	speed [2]float64
}

// Generator moves a fleet of drones with a bounded random walk.
type Generator struct {
	mu     sync.Mutex
	rng    *rand.Rand
	drones []*simDrone
}

// NewGenerator creates n drones scattered over the field. A fixed seed gives
// a reproducible fleet.
func NewGenerator(n int, seed int64) *Generator {
	g := &Generator{rng: rand.New(rand.NewSource(seed))}
	for i := 0; i < n; i++ {
		g.drones = append(g.drones, g.newDrone(i))
	}
	return g
}

func (g *Generator) newDrone(i int) *simDrone {
	m := models[g.rng.Intn(len(models))]
	serial := fmt.Sprintf("SN-%010d", g.rng.Int63n(1e10))
	first := firstNames[g.rng.Intn(len(firstNames))]
	last := lastNames[g.rng.Intn(len(lastNames))]
	return &simDrone{
		snap: telemetry.DroneSnapshot{
			SerialNumber: serial,
			Model:        m.name,
			Manufacturer: m.manufacturer,
			MAC:          fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", 0x02, i, g.rng.Intn(256), g.rng.Intn(256), g.rng.Intn(256), g.rng.Intn(256)),
			IPv4:         fmt.Sprintf("10.%d.%d.%d", g.rng.Intn(256), g.rng.Intn(256), 1+g.rng.Intn(254)),
			IPv6:         fmt.Sprintf("fd00::%x:%x", g.rng.Intn(0xffff), g.rng.Intn(0xffff)),
			Firmware:     fmt.Sprintf("%d.%d.%d", g.rng.Intn(5), g.rng.Intn(10), g.rng.Intn(10)),
			PositionX:    g.rng.Float64() * Field,
			PositionY:    g.rng.Float64() * Field,
			Altitude:     1000 + g.rng.Float64()*4000,
		},
		pilot: telemetry.PilotIdentity{
			PilotID:   "P-" + uuid.NewString()[:8],
			FirstName: first,
			LastName:  last,
			Email:     fmt.Sprintf("%s.%s@example.com", strings.ToLower(first), strings.ToLower(last)),
			Phone:     fmt.Sprintf("+210%09d", g.rng.Intn(1e9)),
		},
		speed: [2]float64{m.speedMin, m.speedMax},
	}
}

// Step advances every drone by one random-walk move and returns the batch.
func (g *Generator) Step() []telemetry.DroneSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]telemetry.DroneSnapshot, 0, len(g.drones))
	for _, d := range g.drones {
		d.snap = g.randomWalk(d.snap, d.speed)
		out = append(out, d.snap)
	}
	return out
}

// Pilot returns the registered pilot of serial.
func (g *Generator) Pilot(serial string) (telemetry.PilotIdentity, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, d := range g.drones {
		if d.snap.SerialNumber == serial {
			return d.pilot, true
		}
	}
	return telemetry.PilotIdentity{}, false
}

// randomWalk moves the drone in a pseudo-random direction and keeps it inside
// the field by reflecting at the edges.
func (g *Generator) randomWalk(s telemetry.DroneSnapshot, speed [2]float64) telemetry.DroneSnapshot {
	heading := g.rng.Float64() * 2 * math.Pi
	dist := g.rng.Float64()*(speed[1]-speed[0]) + speed[0]

	s.PositionX = reflect(s.PositionX + dist*math.Cos(heading))
	s.PositionY = reflect(s.PositionY + dist*math.Sin(heading))
	s.Altitude = math.Max(0, s.Altitude+g.rng.Float64()*200-100)
	return s
}

func reflect(v float64) float64 {
	switch {
	case v < 0:
		return -v
	case v > Field:
		return 2*Field - v
	}
	return v
}

var (
	firstNames = []string{"Ada", "Grace", "Linus", "Margaret", "Ken", "Barbara", "Dennis", "Frances"}
	lastNames  = []string{"Lovelace", "Hopper", "Torvalds", "Hamilton", "Thompson", "Liskov", "Ritchie", "Allen"}
)
