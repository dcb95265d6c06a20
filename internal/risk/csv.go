package risk

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/couchcryptid/riskradar/internal/domain"
)

var routeColumns = []string{"route_id", "order", "name", "lat", "lon"}

// ReadRoutesCSV parses route_id,order,name,lat,lon rows into routes sorted
// by ID, each with waypoints in ascending order.
func ReadRoutesCSV(r io.Reader) ([]Route, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read routes header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range routeColumns {
		if _, ok := col[c]; !ok {
			return nil, fmt.Errorf("routes csv: missing column %q", c)
		}
	}

	byID := map[string]*Route{}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("routes csv line %d: %w", line, err)
		}

		order, err := strconv.Atoi(rec[col["order"]])
		if err != nil {
			return nil, fmt.Errorf("routes csv line %d: order: %w", line, err)
		}
		lat, err := strconv.ParseFloat(rec[col["lat"]], 64)
		if err != nil {
			return nil, fmt.Errorf("routes csv line %d: lat: %w", line, err)
		}
		lon, err := strconv.ParseFloat(rec[col["lon"]], 64)
		if err != nil {
			return nil, fmt.Errorf("routes csv line %d: lon: %w", line, err)
		}
		pt := domain.Point{Lat: lat, Lon: lon}
		if err := pt.Validate(); err != nil {
			return nil, fmt.Errorf("routes csv line %d: %w", line, err)
		}

		id := rec[col["route_id"]]
		route, ok := byID[id]
		if !ok {
			route = &Route{ID: id}
			byID[id] = route
		}
		route.Waypoints = append(route.Waypoints, Waypoint{Order: order, Name: rec[col["name"]], Point: pt})
	}

	routes := make([]Route, 0, len(byID))
	for _, r := range byID {
		sort.SliceStable(r.Waypoints, func(i, j int) bool { return r.Waypoints[i].Order < r.Waypoints[j].Order })
		routes = append(routes, *r)
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].ID < routes[j].ID })
	return routes, nil
}
