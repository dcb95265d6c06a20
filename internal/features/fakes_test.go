package features

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/couchcryptid/riskradar/internal/domain"
)

// memoryEvents is a brute-force EventStore over a fixed slice.
type memoryEvents struct {
	events []domain.HazardEvent
	err    error
	calls  int
}

func (m *memoryEvents) Events(_ context.Context, q domain.EventQuery) ([]domain.HazardEvent, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.HazardEvent
	for _, e := range m.events {
		if e.Hazard != q.Hazard || e.Time.Before(q.From) || e.Time.After(q.To) {
			continue
		}
		if !domain.WithinRadius(q.Center, e.Point(), q.RadiusKM) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type memoryWeather struct {
	days []domain.DailyWeather
	err  error

	gotFrom, gotTo time.Time
}

func (m *memoryWeather) DailyWeather(_ context.Context, _ domain.Point, from, to time.Time) ([]domain.DailyWeather, error) {
	m.gotFrom, m.gotTo = from, to
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.DailyWeather
	for _, d := range m.days {
		if d.Date.Before(from) || d.Date.After(to) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

var errUpstream = errors.New("upstream timeout")

var testSite = domain.Site{Name: "Equator", Lat: 0, Lon: 0}

// eastOf returns a point on the equator d kilometers east of testSite.
func eastOf(km float64) domain.Point {
	return domain.Point{Lat: 0, Lon: km / (domain.EarthRadiusKM * math.Pi / 180)}
}

func fireAt(p domain.Point, t time.Time, frp float64) domain.HazardEvent {
	return domain.HazardEvent{Hazard: domain.HazardFire, Lat: p.Lat, Lon: p.Lon, Time: t, RadiativePower: frp, Brightness: 330}
}

func quakeAt(p domain.Point, t time.Time, mag float64) domain.HazardEvent {
	return domain.HazardEvent{Hazard: domain.HazardQuake, Lat: p.Lat, Lon: p.Lon, Time: t, Magnitude: mag}
}

func weekOfWeather(end time.Time, n int) []domain.DailyWeather {
	days := make([]domain.DailyWeather, 0, n)
	for i := n; i >= 1; i-- {
		days = append(days, domain.DailyWeather{
			Date:          end.AddDate(0, 0, -i),
			TempMean:      20,
			TempMax:       28,
			TempMin:       12,
			HumidityMean:  40,
			HumidityMin:   20,
			WindMax:       15,
			Precipitation: 0,
		})
	}
	return days
}
