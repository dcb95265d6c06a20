package domain

import (
	"fmt"
	"strings"
	"time"
)

// HazardType selects the event source, radius, and thresholds that apply.
type HazardType string

const (
	HazardFire  HazardType = "fire"
	HazardQuake HazardType = "quake"
)

// HazardTypes lists every supported hazard in a stable order.
var HazardTypes = []HazardType{HazardFire, HazardQuake}

// ParseHazardType normalizes and validates a hazard name.
func ParseHazardType(s string) (HazardType, error) {
	switch HazardType(strings.ToLower(strings.TrimSpace(s))) {
	case HazardFire:
		return HazardFire, nil
	case HazardQuake:
		return HazardQuake, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownHazard, s)
	}
}

// Site is a named forecast location. Sites are immutable reference data.
type Site struct {
	Name string  `json:"name" yaml:"name"`
	Lat  float64 `json:"lat" yaml:"lat"`
	Lon  float64 `json:"lon" yaml:"lon"`
}

// Point returns the site's coordinate.
func (s Site) Point() Point {
	return Point{Lat: s.Lat, Lon: s.Lon}
}

// Validate checks the name and coordinate of the site.
func (s Site) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("site name is required")
	}
	if err := s.Point().Validate(); err != nil {
		return fmt.Errorf("site %q: %w", s.Name, err)
	}
	return nil
}

// HazardEvent is a single fire detection or earthquake.
type HazardEvent struct {
	Hazard HazardType `json:"hazard"`
	Lat    float64    `json:"lat"`
	Lon    float64    `json:"lon"`
	Time   time.Time  `json:"time"`

	// Fire attributes.
	Brightness     float64 `json:"brightness,omitempty"`      // Kelvin
	RadiativePower float64 `json:"radiative_power,omitempty"` // MW (FRP)

	// Quake attributes.
	Magnitude float64  `json:"magnitude,omitempty"`
	Depth     *float64 `json:"depth,omitempty"` // km
	Place     string   `json:"place,omitempty"`
}

// Point returns the event's coordinate.
func (e HazardEvent) Point() Point {
	return Point{Lat: e.Lat, Lon: e.Lon}
}

// Intensity is the scalar compared against hazard thresholds: FRP for fire, magnitude for quakes.
func (e HazardEvent) Intensity() float64 {
	if e.Hazard == HazardFire {
		return e.RadiativePower
	}
	return e.Magnitude
}

// DailyWeather holds one day of weather aggregates for a location.
type DailyWeather struct {
	Date          time.Time `json:"date"`
	TempMean      float64   `json:"temp_mean"`
	TempMax       float64   `json:"temp_max"`
	TempMin       float64   `json:"temp_min"`
	HumidityMean  float64   `json:"humidity_mean"`
	HumidityMin   float64   `json:"humidity_min"`
	WindMax       float64   `json:"wind_max"`
	Precipitation float64   `json:"precipitation"`
}

// Sample is one labeled row of the training table.
type Sample struct {
	Site      Site      `json:"site"`
	Reference time.Time `json:"reference"`
	Features  []float64 `json:"features"`
	Label     int       `json:"label"`
}

// Classification is the binary risk class emitted by the forecast engine.
type Classification string

const (
	ClassHigh Classification = "HIGH"
	ClassLow  Classification = "LOW"
)

// Classify returns HIGH when p is at or above threshold. The boundary is inclusive.
func Classify(p, threshold float64) Classification {
	if p >= threshold {
		return ClassHigh
	}
	return ClassLow
}

// ForecastRecord is the scored risk for one site and hazard.
type ForecastRecord struct {
	Site           Site           `json:"site"`
	Hazard         HazardType     `json:"hazard"`
	Probability    float64        `json:"probability"`
	Classification Classification `json:"classification"`
	Threshold      float64        `json:"threshold"`
	ModelVersion   string         `json:"model_version"`
	GeneratedAt    time.Time      `json:"generated_at"`
}
