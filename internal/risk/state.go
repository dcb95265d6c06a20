package risk

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrUnknownRoute is returned for a route ID that was never loaded.
var ErrUnknownRoute = errors.New("unknown route")

// AppState is the shared, swappable view that request handlers read: the
// latest prediction snapshot, the known routes, and the selected route.
// Aggregation itself stays in the pure functions above; AppState only
// decides which snapshot they run against.
type AppState struct {
	mu          sync.RWMutex
	evaluator   *Evaluator
	generatedAt time.Time
	routes      map[string]Route
	selected    string
}

// NewAppState creates an empty state with the given routes.
func NewAppState(routes []Route) *AppState {
	s := &AppState{routes: make(map[string]Route, len(routes)), evaluator: NewEvaluator(nil, DefaultFallbackRadiusKM)}
	for _, r := range routes {
		s.routes[r.ID] = r
	}
	return s
}

// SetPredictions swaps in a new prediction snapshot.
func (s *AppState) SetPredictions(predictions []SitePrediction, generatedAt time.Time) {
	e := NewEvaluator(predictions, DefaultFallbackRadiusKM)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluator = e
	s.generatedAt = generatedAt
}

// Snapshot returns the current evaluator and when its predictions were generated.
func (s *AppState) Snapshot() (*Evaluator, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.evaluator, s.generatedAt
}

// Routes returns the known routes sorted by ID.
func (s *AppState) Routes() []Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Route, 0, len(s.routes))
	for _, r := range s.routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Select marks a route as the current one.
func (s *AppState) Select(routeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.routes[routeID]; !ok {
		return fmt.Errorf("%w %q", ErrUnknownRoute, routeID)
	}
	s.selected = routeID
	return nil
}

// Selected evaluates the selected route against the current snapshot.
func (s *AppState) Selected() (RouteResult, bool, error) {
	s.mu.RLock()
	id, e := s.selected, s.evaluator
	r, ok := s.routes[id]
	s.mu.RUnlock()
	if !ok {
		return RouteResult{}, false, nil
	}
	res, err := e.Route(r)
	return res, true, err
}

// EvaluateRoute evaluates a known route by ID against the current snapshot.
func (s *AppState) EvaluateRoute(routeID string) (RouteResult, error) {
	s.mu.RLock()
	r, ok := s.routes[routeID]
	e := s.evaluator
	s.mu.RUnlock()
	if !ok {
		return RouteResult{}, fmt.Errorf("%w %q", ErrUnknownRoute, routeID)
	}
	return e.Route(r)
}
