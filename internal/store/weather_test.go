package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/riskradar/internal/domain"
)

type fakeUpstream struct {
	calls int
	days  []domain.DailyWeather
	err   error
}

func (f *fakeUpstream) DailyWeather(_ context.Context, _ domain.Point, _, _ time.Time) ([]domain.DailyWeather, error) {
	f.calls++
	return f.days, f.err
}

func weatherDays(start time.Time, n int) []domain.DailyWeather {
	out := make([]domain.DailyWeather, n)
	for i := range out {
		out[i] = domain.DailyWeather{Date: start.AddDate(0, 0, i), TempMean: 20, TempMax: 26, TempMin: 14, HumidityMean: 55, HumidityMin: 35}
	}
	return out
}

func TestArchivedWeather_FetchesAndPersistsGaps(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	from := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 6)

	up := &fakeUpstream{days: weatherDays(from, 7)}
	aw := NewArchivedWeather(st, up)

	got, err := aw.DailyWeather(ctx, athens, from, to)
	require.NoError(t, err)
	assert.Len(t, got, 7)
	assert.Equal(t, 1, up.calls)

	got, err = aw.DailyWeather(ctx, athens, from, to)
	require.NoError(t, err)
	assert.Len(t, got, 7)
	assert.Equal(t, 1, up.calls, "complete ranges are served from the store")
}

func TestArchivedWeather_ReadOnly(t *testing.T) {
	st := newTestSQLiteStore(t)
	from := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, st.InsertWeather(context.Background(), athens, weatherDays(from, 3)))

	got, err := NewArchivedWeather(st, nil).DailyWeather(context.Background(), athens, from, from.AddDate(0, 0, 6))
	require.NoError(t, err)
	assert.Len(t, got, 3, "partial data is returned as is")
}

func TestArchivedWeather_UpstreamError(t *testing.T) {
	st := newTestSQLiteStore(t)
	from := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	aw := NewArchivedWeather(st, &fakeUpstream{err: errors.New("archive timeout")})

	_, err := aw.DailyWeather(context.Background(), athens, from, from)
	require.Error(t, err)
}

func TestArchivedWeather_UpstreamEmpty(t *testing.T) {
	st := newTestSQLiteStore(t)
	from := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	got, err := NewArchivedWeather(st, &fakeUpstream{}).DailyWeather(context.Background(), athens, from, from)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCalendarDays(t *testing.T) {
	from := time.Date(2024, 7, 1, 18, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, calendarDays(from, from))
	assert.Equal(t, 7, calendarDays(from, from.AddDate(0, 0, 6).Add(-12*time.Hour)))
	assert.Zero(t, calendarDays(from, from.AddDate(0, 0, -2)))
}
