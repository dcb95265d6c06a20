package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance(t *testing.T) {
	oneDegreeKM := EarthRadiusKM * math.Pi / 180

	tests := []struct {
		name string
		a, b Point
		want float64
		tol  float64
	}{
		{"same point", Point{Lat: 34.05, Lon: -118.24}, Point{Lat: 34.05, Lon: -118.24}, 0, 1e-9},
		{"one degree on equator", Point{Lat: 0, Lon: 0}, Point{Lat: 0, Lon: 1}, oneDegreeKM, 1e-6},
		{"one degree of latitude", Point{Lat: 10, Lon: 20}, Point{Lat: 11, Lon: 20}, oneDegreeKM, 1e-6},
		{"antipodal", Point{Lat: 0, Lon: 0}, Point{Lat: 0, Lon: 180}, EarthRadiusKM * math.Pi, 1e-6},
		{"los angeles to san francisco", Point{Lat: 34.0522, Lon: -118.2437}, Point{Lat: 37.7749, Lon: -122.4194}, 559, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Distance(tt.a, tt.b)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, tt.tol)
		})
	}
}

func TestDistance_Symmetric(t *testing.T) {
	points := []Point{
		{Lat: 35.68, Lon: 139.69},
		{Lat: 61.22, Lon: -149.90},
		{Lat: -33.87, Lon: 151.21},
		{Lat: 47.61, Lon: -122.33},
	}
	for _, a := range points {
		for _, b := range points {
			ab, err := Distance(a, b)
			require.NoError(t, err)
			ba, err := Distance(b, a)
			require.NoError(t, err)
			assert.InDelta(t, ab, ba, 1e-9)
		}
	}
}

func TestDistance_TriangleInequality(t *testing.T) {
	a := Point{Lat: 34.05, Lon: -118.24}
	b := Point{Lat: 37.77, Lon: -122.42}
	c := Point{Lat: 47.61, Lon: -122.33}

	ab, _ := Distance(a, b)
	bc, _ := Distance(b, c)
	ac, _ := Distance(a, c)
	assert.LessOrEqual(t, ac, ab+bc+1e-9)
}

func TestDistance_ZeroOnlyForSamePoint(t *testing.T) {
	d, err := Distance(Point{Lat: 0, Lon: 0}, Point{Lat: 0, Lon: 0.0001})
	require.NoError(t, err)
	assert.Greater(t, d, 0.0)
}

func TestDistance_InvalidCoordinate(t *testing.T) {
	tests := []struct {
		name string
		p    Point
	}{
		{"latitude too high", Point{Lat: 90.5, Lon: 0}},
		{"latitude too low", Point{Lat: -91, Lon: 0}},
		{"longitude too high", Point{Lat: 0, Lon: 180.1}},
		{"longitude too low", Point{Lat: 0, Lon: -200}},
		{"nan latitude", Point{Lat: math.NaN(), Lon: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Distance(tt.p, Point{})
			require.ErrorIs(t, err, ErrInvalidCoordinate)

			_, err = Distance(Point{}, tt.p)
			require.ErrorIs(t, err, ErrInvalidCoordinate)
		})
	}
}

func TestWithinRadius_BoundaryInclusive(t *testing.T) {
	center := Point{Lat: 0, Lon: 0}
	edge := Point{Lat: 0, Lon: 1}
	r, err := Distance(center, edge)
	require.NoError(t, err)

	assert.True(t, WithinRadius(center, edge, r))
	assert.False(t, WithinRadius(center, edge, r-1e-6))
	assert.False(t, WithinRadius(center, Point{Lat: 100, Lon: 0}, 1e6))
}
