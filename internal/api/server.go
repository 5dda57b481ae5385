package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"birdnest/internal/monitor"
)

// Server exposes the violation table over HTTP.
type Server struct {
	monitor *monitor.Monitor
	hub     *Hub
	metrics http.Handler
	log     *slog.Logger
	router  chi.Router
}

// NewServer builds the router. hub and metrics may be nil, in which case
// /ws and /metrics are not mounted.
func NewServer(m *monitor.Monitor, hub *Hub, metrics http.Handler, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{monitor: m, hub: hub, metrics: metrics, log: log}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleViolations)
	r.Get("/violations", s.handleViolations)
	r.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	if s.hub != nil {
		r.Get("/ws", s.handleWebSocket)
	}
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listens on addr until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return http.ErrServerClosed
	}
}

func (s *Server) handleViolations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.Table().List())
}

// Health summarises the monitor state.
type Health struct {
	Status     string     `json:"status"`
	Violations int        `json:"violations"`
	LastCycle  *time.Time `json:"last_cycle,omitempty"`
	LastError  string     `json:"last_fetch_error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := Health{Status: "ok", Violations: s.monitor.Table().Len()}
	if rep, ok := s.monitor.LastCycle(); ok {
		ts := rep.Start.UTC()
		h.LastCycle = &ts
		if rep.FetchErr != nil {
			h.Status = "degraded"
			h.LastError = rep.FetchErr.Error()
		}
	}
	writeJSON(w, http.StatusOK, h)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
