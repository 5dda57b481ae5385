package telemetry

import "math"

// Default no-drone zone around the nest, in feed units (millimetres).
const (
	DefaultCenterX = 250000.0
	DefaultCenterY = 250000.0
	DefaultRadius  = 100000.0
)

// Zone is a circular no-drone zone.
type Zone struct {
	CenterX float64
	CenterY float64
	Radius  float64
}

// DefaultZone returns the zone monitored when nothing else is configured.
func DefaultZone() Zone {
	return Zone{CenterX: DefaultCenterX, CenterY: DefaultCenterY, Radius: DefaultRadius}
}

// Distance returns the planar distance from the drone to the zone center.
func (z Zone) Distance(d DroneSnapshot) float64 {
	return math.Hypot(d.PositionX-z.CenterX, d.PositionY-z.CenterY)
}

// Violates reports whether the drone is strictly inside the zone.
func (z Zone) Violates(d DroneSnapshot) bool {
	return z.Distance(d) < z.Radius
}
