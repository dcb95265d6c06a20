package domain

import (
	"context"
	"time"
)

// EventQuery selects hazard events of one type within RadiusKM of Center
// whose timestamps fall in the closed interval [From, To]. Callers apply any
// stricter window boundaries themselves.
type EventQuery struct {
	Hazard   HazardType
	Center   Point
	RadiusKM float64
	From     time.Time
	To       time.Time
}

// EventStore returns hazard events matching a spatial and temporal query.
type EventStore interface {
	Events(ctx context.Context, q EventQuery) ([]HazardEvent, error)
}

// WeatherSource returns daily weather for a location over an inclusive date range.
type WeatherSource interface {
	DailyWeather(ctx context.Context, p Point, from, to time.Time) ([]DailyWeather, error)
}
