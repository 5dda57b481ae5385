package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Resolution is the outcome of one pilot lookup. On failure Err is set and
// Identity is UnknownPilot.
type Resolution struct {
	Identity   PilotIdentity
	Drone      DroneSnapshot
	ResolvedAt time.Time
	Err        error
}

// Resolver looks up the pilot registered for a drone.
type Resolver interface {
	Resolve(ctx context.Context, drone DroneSnapshot) Resolution
}

type pilotResponse struct {
	PilotID     string `json:"pilotId"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

// HTTPResolver queries the pilot registry over HTTP.
type HTTPResolver struct {
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// NewHTTPResolver creates a resolver for baseURL; lookups go to baseURL/<serial>.
func NewHTTPResolver(baseURL string, client *http.Client) *HTTPResolver {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPResolver{baseURL: strings.TrimRight(baseURL, "/"), client: client, now: time.Now}
}

// Resolve implements Resolver.
func (r *HTTPResolver) Resolve(ctx context.Context, drone DroneSnapshot) Resolution {
	id, err := r.lookup(ctx, drone.SerialNumber)
	res := Resolution{Identity: id, Drone: drone, ResolvedAt: r.now(), Err: err}
	if err != nil {
		res.Identity = UnknownPilot
	}
	return res
}

func (r *HTTPResolver) lookup(ctx context.Context, serial string) (PilotIdentity, error) {
	if serial == "" {
		return PilotIdentity{}, fmt.Errorf("lookup pilot: empty serial number")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/"+url.PathEscape(serial), nil)
	if err != nil {
		return PilotIdentity{}, fmt.Errorf("build pilot request: %w", err)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return PilotIdentity{}, fmt.Errorf("get pilot %s: %w", serial, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return PilotIdentity{}, fmt.Errorf("get pilot %s: unexpected status %s", serial, resp.Status)
	}
	var pr pilotResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return PilotIdentity{}, fmt.Errorf("decode pilot %s: %w", serial, err)
	}
	return pr.identity()
}

func (p pilotResponse) identity() (PilotIdentity, error) {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"pilotId", p.PilotID},
		{"firstName", p.FirstName},
		{"lastName", p.LastName},
		{"email", p.Email},
		{"phoneNumber", p.PhoneNumber},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return PilotIdentity{}, fmt.Errorf("pilot response missing fields: %s", strings.Join(missing, ", "))
	}
	return PilotIdentity{
		PilotID:   p.PilotID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.PhoneNumber,
	}, nil
}
