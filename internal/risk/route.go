package risk

import (
	"fmt"
	"sort"
	"strings"

	"github.com/couchcryptid/riskradar/internal/domain"
)

// DefaultFallbackRadiusKM is how far a waypoint without its own prediction
// may borrow the nearest predicted site's probabilities.
const DefaultFallbackRadiusKM = 100.0

// SitePrediction is one site's forecast in aggregator form.
type SitePrediction struct {
	Site domain.Site
	Probabilities
}

// Waypoint is one stop on a route.
type Waypoint struct {
	Order int          `json:"order"`
	Name  string       `json:"name"`
	Point domain.Point `json:"point"`
}

// Route is an ordered list of waypoints.
type Route struct {
	ID        string     `json:"id"`
	Waypoints []Waypoint `json:"waypoints"`
}

// PointRisk is a waypoint's own probabilities and the running aggregate up to it.
type PointRisk struct {
	Waypoint
	// Source is the predicted site used for this waypoint, empty when none was found.
	Source     string        `json:"source,omitempty"`
	Matched    bool          `json:"matched"`
	Risk       Probabilities `json:"risk"`
	Cumulative Probabilities `json:"cumulative"`
}

// RouteResult is the aggregated risk of a route.
type RouteResult struct {
	RouteID         string            `json:"route_id"`
	Points          []PointRisk       `json:"points"`
	Aggregate       Probabilities     `json:"aggregate"`
	Percent         Probabilities     `json:"percent"`
	TotalDistanceKM float64           `json:"total_distance_km"`
	Dominant        domain.HazardType `json:"dominant"`
	Level           Level             `json:"level"`
	Unmatched       int               `json:"unmatched"`
}

// Evaluator resolves waypoints against a fixed snapshot of site predictions.
// It never mutates the snapshot and is safe for concurrent use.
type Evaluator struct {
	byName     map[string]SitePrediction
	sites      []SitePrediction
	fallbackKM float64
}

// NewEvaluator indexes predictions by case-insensitive site name.
func NewEvaluator(predictions []SitePrediction, fallbackKM float64) *Evaluator {
	e := &Evaluator{
		byName:     make(map[string]SitePrediction, len(predictions)),
		sites:      append([]SitePrediction(nil), predictions...),
		fallbackKM: fallbackKM,
	}
	for _, p := range predictions {
		e.byName[nameKey(p.Site.Name)] = p
	}
	return e
}

// Lookup returns the prediction for a site name. A missing site reports
// ok=false and zero probabilities, which aggregate as a no-op.
func (e *Evaluator) Lookup(name string) (Probabilities, bool) {
	p, ok := e.byName[nameKey(name)]
	return p.Probabilities, ok
}

// Resolve finds probabilities for a waypoint: exact name match first, then
// the nearest predicted site within the fallback radius.
func (e *Evaluator) Resolve(w Waypoint) (Probabilities, string, bool) {
	if p, ok := e.byName[nameKey(w.Name)]; ok {
		return p.Probabilities, p.Site.Name, true
	}
	if w.Point.Validate() != nil || e.fallbackKM <= 0 {
		return Probabilities{}, "", false
	}

	var (
		best     SitePrediction
		bestDist = e.fallbackKM
		found    bool
	)
	for _, s := range e.sites {
		d, err := domain.Distance(w.Point, s.Site.Point())
		if err != nil {
			continue
		}
		if d <= bestDist {
			best, bestDist, found = s, d, true
		}
	}
	if !found {
		return Probabilities{}, "", false
	}
	return best.Probabilities, best.Site.Name, true
}

// Route aggregates a route's waypoints in order. Unresolvable waypoints
// contribute probability 0.
func (e *Evaluator) Route(r Route) (RouteResult, error) {
	waypoints := append([]Waypoint(nil), r.Waypoints...)
	sort.SliceStable(waypoints, func(i, j int) bool { return waypoints[i].Order < waypoints[j].Order })

	res := RouteResult{RouteID: r.ID, Points: make([]PointRisk, 0, len(waypoints))}
	seen := make([]Probabilities, 0, len(waypoints))
	for i, w := range waypoints {
		if i > 0 {
			d, err := domain.Distance(waypoints[i-1].Point, w.Point)
			if err != nil {
				return RouteResult{}, fmt.Errorf("route %s waypoint %d: %w", r.ID, w.Order, err)
			}
			res.TotalDistanceKM += d
		}

		p, source, ok := e.Resolve(w)
		if !ok {
			res.Unmatched++
		}
		seen = append(seen, p)
		res.Points = append(res.Points, PointRisk{
			Waypoint:   w,
			Source:     source,
			Matched:    ok,
			Risk:       p,
			Cumulative: Aggregate(seen),
		})
	}

	res.Aggregate = Aggregate(seen)
	res.Percent = res.Aggregate.Percent()
	res.Dominant = Dominant(res.Aggregate)
	res.Level = LevelFor(res.Percent.Combined)
	return res, nil
}

// ProfileResult is the aggregate risk of an unordered set of named sites.
type ProfileResult struct {
	Sites     []string          `json:"sites"`
	Missing   []string          `json:"missing,omitempty"`
	Aggregate Probabilities     `json:"aggregate"`
	Percent   Probabilities     `json:"percent"`
	Dominant  domain.HazardType `json:"dominant"`
	Level     Level             `json:"level"`
}

// Profile aggregates the named sites. Names without a prediction are listed
// in Missing and contribute 0.
func (e *Evaluator) Profile(names []string) ProfileResult {
	res := ProfileResult{Sites: names}
	points := make([]Probabilities, 0, len(names))
	for _, n := range names {
		p, ok := e.Lookup(n)
		if !ok {
			res.Missing = append(res.Missing, n)
			continue
		}
		points = append(points, p)
	}
	res.Aggregate = Aggregate(points)
	res.Percent = res.Aggregate.Percent()
	res.Dominant = Dominant(res.Aggregate)
	res.Level = LevelFor(res.Percent.Combined)
	return res
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
