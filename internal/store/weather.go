package store

import (
	"context"
	"time"

	"github.com/couchcryptid/riskradar/internal/domain"
)

// ArchivedWeather serves daily weather from the store and fills gaps from an
// upstream source, persisting what it fetched.
type ArchivedWeather struct {
	store    *SQLiteStore
	upstream domain.WeatherSource
}

// NewArchivedWeather wraps st. A nil upstream makes it read-only.
func NewArchivedWeather(st *SQLiteStore, upstream domain.WeatherSource) *ArchivedWeather {
	return &ArchivedWeather{store: st, upstream: upstream}
}

func (a *ArchivedWeather) DailyWeather(ctx context.Context, p domain.Point, from, to time.Time) ([]domain.DailyWeather, error) {
	stored, err := a.store.DailyWeather(ctx, p, from, to)
	if err != nil {
		return nil, err
	}
	if a.upstream == nil || len(stored) >= calendarDays(from, to) {
		return stored, nil
	}

	fetched, err := a.upstream.DailyWeather(ctx, p, from, to)
	if err != nil {
		return nil, err
	}
	if len(fetched) == 0 {
		return stored, nil
	}
	if err := a.store.InsertWeather(ctx, p, fetched); err != nil {
		return nil, err
	}
	return a.store.DailyWeather(ctx, p, from, to)
}

// calendarDays counts the UTC dates in [from, to].
func calendarDays(from, to time.Time) int {
	f := from.UTC().Truncate(24 * time.Hour)
	t := to.UTC().Truncate(24 * time.Hour)
	if t.Before(f) {
		return 0
	}
	return int(t.Sub(f)/(24*time.Hour)) + 1
}
