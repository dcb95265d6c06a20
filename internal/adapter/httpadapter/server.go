package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/riskradar/internal/forecast"
	"github.com/couchcryptid/riskradar/internal/risk"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// ExportSource provides the most recent forecast export.
type ExportSource interface {
	Latest() (forecast.Export, bool)
}

// Server exposes health, readiness, metrics, and the forecast and route-risk API.
type Server struct {
	httpServer *http.Server
	exports    ExportSource
	state      *risk.AppState
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the health, metrics and /api routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, exports ExportSource, state *risk.AppState, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		exports: exports,
		state:   state,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/forecast", s.handleForecast)
	mux.HandleFunc("GET /api/routes", s.handleRoutes)
	mux.HandleFunc("GET /api/routes/{id}", s.handleRoute)
	mux.HandleFunc("GET /api/selected-route", s.handleSelected)
	mux.HandleFunc("PUT /api/selected-route", s.handleSelect)
	mux.HandleFunc("POST /api/profile", s.handleProfile)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleForecast(w http.ResponseWriter, _ *http.Request) {
	ex, ok := s.exports.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, errors.New("no forecast available yet"))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, ex)
}

type routeSummary struct {
	ID        string `json:"id"`
	Waypoints int    `json:"waypoints"`
}

func (s *Server) handleRoutes(w http.ResponseWriter, _ *http.Request) {
	routes := s.state.Routes()
	out := make([]routeSummary, len(routes))
	for i, r := range routes {
		out[i] = routeSummary{ID: r.ID, Waypoints: len(r.Waypoints)}
	}
	sharedobs.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	res, err := s.state.EvaluateRoute(r.PathValue("id"))
	if err != nil {
		s.writeRouteError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, res)
}

func (s *Server) handleSelected(w http.ResponseWriter, _ *http.Request) {
	res, ok, err := s.state.Selected()
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("no route selected"))
		return
	}
	if err != nil {
		s.writeRouteError(w, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, res)
}

type selectRequest struct {
	RouteID string `json:"route_id"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.state.Select(req.RouteID); err != nil {
		s.writeRouteError(w, err)
		return
	}
	s.handleSelected(w, r)
}

type profileRequest struct {
	Sites []string `json:"sites"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Sites) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("sites must not be empty"))
		return
	}
	e, _ := s.state.Snapshot()
	sharedobs.WriteJSON(w, http.StatusOK, e.Profile(req.Sites))
}

func (s *Server) writeRouteError(w http.ResponseWriter, err error) {
	if errors.Is(err, risk.ErrUnknownRoute) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	s.logger.Error("route evaluation failed", "error", err)
	writeError(w, http.StatusInternalServerError, err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
