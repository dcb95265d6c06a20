package openmeteo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/riskradar/internal/domain"
	"github.com/couchcryptid/riskradar/internal/observability"
)

// --- mock for cache tests ---

type countingWeather struct {
	calls int
	days  []domain.DailyWeather
	err   error
}

func (m *countingWeather) DailyWeather(_ context.Context, _ domain.Point, _, _ time.Time) ([]domain.DailyWeather, error) {
	m.calls++
	return m.days, m.err
}

// --- CachedWeather tests ---

func TestCachedWeather_Hit(t *testing.T) {
	inner := &countingWeather{days: []domain.DailyWeather{{Date: juneFirst, TempMean: 17}}}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedWeather(inner, 10, metrics)

	d1, err := cached.DailyWeather(context.Background(), munich, juneFirst, juneSeventh)
	require.NoError(t, err)
	d2, err := cached.DailyWeather(context.Background(), munich, juneFirst, juneSeventh)
	require.NoError(t, err)

	assert.Equal(t, d1, d2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.InDelta(t, 1, counterValue(t, metrics.WeatherCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, counterValue(t, metrics.WeatherCache.WithLabelValues("miss")), 0)
}

func TestCachedWeather_DifferentRangesMiss(t *testing.T) {
	inner := &countingWeather{days: []domain.DailyWeather{{Date: juneFirst}}}
	cached := NewCachedWeather(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.DailyWeather(context.Background(), munich, juneFirst, juneSeventh)
	_, _ = cached.DailyWeather(context.Background(), munich, juneFirst, juneSeventh.AddDate(0, 0, 1))
	_, _ = cached.DailyWeather(context.Background(), domain.Point{Lat: 52.52, Lon: 13.40}, juneFirst, juneSeventh)

	assert.Equal(t, 3, inner.calls)
}

func TestCachedWeather_EmptyAndErrorsNotCached(t *testing.T) {
	inner := &countingWeather{}
	cached := NewCachedWeather(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.DailyWeather(context.Background(), munich, juneFirst, juneSeventh)
	_, _ = cached.DailyWeather(context.Background(), munich, juneFirst, juneSeventh)
	assert.Equal(t, 2, inner.calls)

	inner.err = errors.New("boom")
	_, err := cached.DailyWeather(context.Background(), munich, juneFirst, juneSeventh)
	require.Error(t, err)
	assert.Zero(t, cached.cache.size())
}

// --- LRU cache unit tests ---

func TestLRUCache_BasicGetPut(t *testing.T) {
	c := newLRUCache[string](3)

	c.put("a", "A")
	c.put("b", "B")

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A", v)

	_, ok = c.get("missing")
	assert.False(t, ok)
}

func TestLRUCache_Eviction(t *testing.T) {
	c := newLRUCache[string](2)

	c.put("a", "A")
	c.put("b", "B")
	c.put("c", "C") // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	v, ok := c.get("c")
	assert.True(t, ok)
	assert.Equal(t, "C", v)
	assert.Equal(t, 2, c.size())
}

func TestLRUCache_AccessPromotesEntry(t *testing.T) {
	c := newLRUCache[int](2)

	c.put("a", 1)
	c.put("b", 2)
	c.get("a")
	c.put("c", 3)

	_, ok := c.get("a")
	assert.True(t, ok, "a was accessed recently, should not be evicted")
	_, ok = c.get("b")
	assert.False(t, ok, "b should have been evicted")
}

func TestLRUCache_UpdateExisting(t *testing.T) {
	c := newLRUCache[string](2)

	c.put("a", "A1")
	c.put("a", "A2")

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", v)
	assert.Equal(t, 1, c.size())
}
