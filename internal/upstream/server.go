package upstream

import (
	"encoding/json"
	"encoding/xml"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"birdnest/internal/telemetry"
)

// Options configures the mock upstream.
type Options struct {
	Drones int
	Seed   int64
	// PilotFailureRate is the fraction of pilot lookups answered with 500.
	PilotFailureRate float64
	// FeedFailureRate is the fraction of drone feed requests answered with 503.
	FeedFailureRate float64
}

type feedReport struct {
	XMLName xml.Name `xml:"report"`
	Capture struct {
		SnapshotTimestamp string                    `xml:"snapshotTimestamp,attr"`
		Drones            []telemetry.DroneSnapshot `xml:"drone"`
	} `xml:"capture"`
}

type pilotBody struct {
	PilotID     string `json:"pilotId"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
	CreatedDt   string `json:"createdDt"`
}

// Server serves /drones and /pilots/{serial} backed by a Generator.
type Server struct {
	gen  *Generator
	opts Options
	log  *slog.Logger
	now  func() time.Time

	mu  sync.Mutex
	rng *rand.Rand

	router chi.Router
}

// NewServer builds a mock upstream.
func NewServer(opts Options, log *slog.Logger) *Server {
	if opts.Drones <= 0 {
		opts.Drones = 10
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		gen:  NewGenerator(opts.Drones, opts.Seed),
		opts: opts,
		log:  log,
		now:  time.Now,
		rng:  rand.New(rand.NewSource(opts.Seed + 1)),
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/drones", s.handleDrones)
	r.Get("/pilots/{serial}", s.handlePilot)
	s.router = r
	return s
}

// Generator returns the fleet behind the server.
func (s *Server) Generator() *Generator { return s.gen }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) fail(rate float64) bool {
	if rate <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64() < rate
}

func (s *Server) handleDrones(w http.ResponseWriter, r *http.Request) {
	if s.fail(s.opts.FeedFailureRate) {
		http.Error(w, "feed unavailable", http.StatusServiceUnavailable)
		return
	}
	var rep feedReport
	rep.Capture.SnapshotTimestamp = s.now().UTC().Format(time.RFC3339Nano)
	rep.Capture.Drones = s.gen.Step()

	w.Header().Set("Content-Type", "application/xml")
	w.Write([]byte(xml.Header))
	if err := xml.NewEncoder(w).Encode(rep); err != nil {
		s.log.Error("encode drone feed", "err", err)
	}
}

func (s *Server) handlePilot(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")
	if s.fail(s.opts.PilotFailureRate) {
		http.Error(w, "registry error", http.StatusInternalServerError)
		return
	}
	p, ok := s.gen.Pilot(serial)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pilotBody{
		PilotID:     p.PilotID,
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Email:       p.Email,
		PhoneNumber: p.Phone,
		CreatedDt:   s.now().UTC().Format(time.RFC3339),
	})
}
