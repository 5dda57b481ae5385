// Drone and pilot types shared by the upstream clients and the violation table
package telemetry

// DroneSnapshot is one observation of a drone from the telemetry feed.
type DroneSnapshot struct {
	SerialNumber string  `xml:"serialNumber" json:"serial_number"`
	Model        string  `xml:"model" json:"model"`
	Manufacturer string  `xml:"manufacturer" json:"manufacturer"`
	MAC          string  `xml:"mac" json:"mac"`
	IPv4         string  `xml:"ipv4" json:"ipv4"`
	IPv6         string  `xml:"ipv6" json:"ipv6"`
	Firmware     string  `xml:"firmware" json:"firmware"`
	PositionY    float64 `xml:"positionY" json:"position_y"`
	PositionX    float64 `xml:"positionX" json:"position_x"`
	Altitude     float64 `xml:"altitude" json:"altitude"`
}

// PilotIdentity holds the registered owner of a drone.
type PilotIdentity struct {
	PilotID   string `json:"pilot_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Unknown is the placeholder value for every identity field when a lookup
// has not succeeded.
const Unknown = "Unknown"

// UnknownPilot is the sentinel identity for a failed or pending lookup.
var UnknownPilot = PilotIdentity{
	PilotID:   Unknown,
	FirstName: Unknown,
	LastName:  Unknown,
	Email:     Unknown,
	Phone:     Unknown,
}

// IsUnknown reports whether p is the sentinel identity.
func (p PilotIdentity) IsUnknown() bool {
	return p == UnknownPilot
}
