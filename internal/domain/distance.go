package domain

import (
	"fmt"

	"github.com/golang/geo/s2"
)

// EarthRadiusKM is the mean Earth radius used for great-circle distances.
const EarthRadiusKM = 6371.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate returns ErrInvalidCoordinate when the point is out of range or NaN.
func (p Point) Validate() error {
	// Comparisons are written so NaN fails them.
	if !(p.Lat >= -90 && p.Lat <= 90) {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, p.Lat)
	}
	if !(p.Lon >= -180 && p.Lon <= 180) {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, p.Lon)
	}
	return nil
}

// Distance returns the haversine great-circle distance between a and b in kilometers.
func Distance(a, b Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	return distanceKM(a, b), nil
}

// distanceKM skips validation for callers that have already validated both points.
func distanceKM(a, b Point) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * EarthRadiusKM
}

// WithinRadius reports whether b lies within radiusKM of a, boundary inclusive.
// Invalid coordinates are never within any radius.
func WithinRadius(a, b Point, radiusKM float64) bool {
	d, err := Distance(a, b)
	if err != nil {
		return false
	}
	return d <= radiusKM
}
