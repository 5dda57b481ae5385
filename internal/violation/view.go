package violation

import "time"

// View is the read-only shape served to clients.
type View struct {
	SerialNumber string  `json:"serial_number"`
	PilotID      string  `json:"pilot_id"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	Email        string  `json:"email"`
	Phone        string  `json:"phone"`
	Dist         float64 `json:"dist"`
	FirstSeen    float64 `json:"first_seen"` // unix seconds
	LastSeen     float64 `json:"last_seen"`  // unix seconds
}

// View converts the record to its client representation.
func (r Record) View() View {
	return View{
		SerialNumber: r.Serial,
		PilotID:      r.Identity.PilotID,
		FirstName:    r.Identity.FirstName,
		LastName:     r.Identity.LastName,
		Email:        r.Identity.Email,
		Phone:        r.Identity.Phone,
		Dist:         r.ClosestDistance,
		FirstSeen:    unixSeconds(r.FirstSeen),
		LastSeen:     unixSeconds(r.LastSeen),
	}
}

// LastSeenTime converts LastSeen back to a time.Time.
func (v View) LastSeenTime() time.Time {
	sec := int64(v.LastSeen)
	return time.Unix(sec, int64((v.LastSeen-float64(sec))*1e9))
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// Event types emitted after each cycle.
const (
	EventCreated    = "created"
	EventIdentified = "identified"
	EventCloser     = "closer"
	EventExpired    = "expired"
)

// Event describes one change to a violation record.
type Event struct {
	CycleID   string    `json:"cycle_id"`
	Type      string    `json:"type"`
	Serial    string    `json:"serial_number"`
	PilotID   string    `json:"pilot_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Distance  float64   `json:"dist"`
	PositionX float64   `json:"position_x"`
	PositionY float64   `json:"position_y"`
	Altitude  float64   `json:"altitude"`
	LastSeen  time.Time `json:"last_seen"`
	Timestamp time.Time `json:"ts"`
}

// NewEvent builds an event of type typ from r.
func NewEvent(cycleID, typ string, r Record, ts time.Time) Event {
	return Event{
		CycleID:   cycleID,
		Type:      typ,
		Serial:    r.Serial,
		PilotID:   r.Identity.PilotID,
		FirstName: r.Identity.FirstName,
		LastName:  r.Identity.LastName,
		Email:     r.Identity.Email,
		Phone:     r.Identity.Phone,
		Distance:  r.ClosestDistance,
		PositionX: r.ClosestDrone.PositionX,
		PositionY: r.ClosestDrone.PositionY,
		Altitude:  r.ClosestDrone.Altitude,
		LastSeen:  r.LastSeen,
		Timestamp: ts,
	}
}

// Events flattens c into events in a stable order: created, identified,
// closer, expired.
func (c Changes) Events(cycleID string, ts time.Time) []Event {
	var out []Event
	add := func(typ string, recs []Record) {
		for _, r := range recs {
			out = append(out, NewEvent(cycleID, typ, r, ts))
		}
	}
	add(EventCreated, c.Created)
	add(EventIdentified, c.Identified)
	add(EventCloser, c.Closer)
	add(EventExpired, c.Expired)
	return out
}
