package features

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/riskradar/internal/domain"
)

func valueOf(t *testing.T, v Vector, name string) float64 {
	t.Helper()
	for i, n := range v.Names {
		if n == name {
			return v.Values[i]
		}
	}
	t.Fatalf("feature %q not in vector", name)
	return 0
}

func TestSchema_Order(t *testing.T) {
	quake := Schema(domain.DefaultParams(domain.HazardQuake))
	want := []string{
		"quakes_7d_count", "quakes_30d_count",
		"quake_max_mag_7d", "quake_avg_mag_7d",
		"quakes_high_magnitude_30d", "quake_avg_depth_30d",
		"seismic_trend", "days_since_last_quake",
		"latitude", "longitude", "month", "season",
	}
	if diff := cmp.Diff(want, quake); diff != "" {
		t.Errorf("quake schema mismatch (-want +got):\n%s", diff)
	}

	fire := Schema(domain.DefaultParams(domain.HazardFire))
	assert.Len(t, fire, 21)
	assert.Equal(t, "fires_7d_count", fire[0])
	assert.Equal(t, "season", fire[len(fire)-1])
	assert.Contains(t, fire, "dry_days")
}

func TestSchema_FollowsWindowParams(t *testing.T) {
	p := domain.DefaultParams(domain.HazardFire)
	p.ShortWindowDays = 14
	p.LongWindowDays = 60

	names := Schema(p)
	assert.Equal(t, "fires_14d_count", names[0])
	assert.Equal(t, "fires_60d_count", names[1])
}

func TestBuild_NoPriorEvents(t *testing.T) {
	ref := time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)
	p := domain.DefaultParams(domain.HazardFire)
	b := NewBuilder(&memoryEvents{}, &memoryWeather{days: weekOfWeather(ref, 7)})

	v, err := b.Build(context.Background(), testSite, ref, p)
	require.NoError(t, err)

	assert.Equal(t, Schema(p), v.Names)
	assert.Len(t, v.Values, len(v.Names))
	assert.InDelta(t, DaysSinceSentinel, valueOf(t, v, "days_since_last_fire"), 0)
	assert.InDelta(t, 0, valueOf(t, v, "fires_7d_count"), 0)
	assert.InDelta(t, 8, valueOf(t, v, "month"), 0)
	assert.InDelta(t, 2, valueOf(t, v, "season"), 0)
}

func TestBuild_FireHistory(t *testing.T) {
	ref := time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)
	p := domain.DefaultParams(domain.HazardFire)
	near := eastOf(10)

	events := []domain.HazardEvent{
		fireAt(near, ref.Add(-2*24*time.Hour), 40),           // short window
		fireAt(near, ref.Add(-3*24*time.Hour), 120),          // short window, high intensity
		fireAt(near, ref.Add(-3*24*time.Hour+time.Hour), 60), // same day as above
		fireAt(near, ref.Add(-10*24*time.Hour), 50),          // prior window
		fireAt(near, ref.Add(-20*24*time.Hour), 35),          // long window only
		fireAt(near, ref.Add(-40*24*time.Hour), 80),          // outside every window
		fireAt(near, ref.Add(-24*time.Hour), 10),             // below min intensity
		fireAt(eastOf(60), ref.Add(-24*time.Hour), 90),       // outside feature radius
		fireAt(near, ref, 200),                               // at reference, not lookback
		fireAt(near, ref.Add(time.Hour), 200),                // lookahead
	}
	b := NewBuilder(&memoryEvents{events: events}, &memoryWeather{days: weekOfWeather(ref, 7)})

	v, err := b.Build(context.Background(), testSite, ref, p)
	require.NoError(t, err)

	assert.InDelta(t, 3, valueOf(t, v, "fires_7d_count"), 0)
	assert.InDelta(t, 5, valueOf(t, v, "fires_30d_count"), 0)
	assert.InDelta(t, 120, valueOf(t, v, "fire_max_frp_7d"), 1e-9)
	assert.InDelta(t, 220.0/3, valueOf(t, v, "fire_avg_frp_7d"), 1e-9)
	assert.InDelta(t, 330, valueOf(t, v, "fire_max_brightness_7d"), 1e-9)
	assert.InDelta(t, 1, valueOf(t, v, "fires_high_intensity_30d"), 0)
	assert.InDelta(t, 2, valueOf(t, v, "fires_persistent_days"), 0)
	assert.InDelta(t, 2, valueOf(t, v, "fire_trend"), 0)
	assert.InDelta(t, 2, valueOf(t, v, "days_since_last_fire"), 0)
	assert.InDelta(t, 7, valueOf(t, v, "dry_days"), 0)
	assert.InDelta(t, 20, valueOf(t, v, "temp_mean"), 1e-9)
}

func TestBuild_QuakeDepthAndTrend(t *testing.T) {
	ref := time.Date(2023, 1, 20, 12, 0, 0, 0, time.UTC)
	p := domain.DefaultParams(domain.HazardQuake)
	near := eastOf(20)
	depth := func(d float64) *float64 { return &d }

	q1 := quakeAt(near, ref.Add(-9*24*time.Hour), 5.2)
	q1.Depth = depth(10)
	q2 := quakeAt(near, ref.Add(-11*24*time.Hour), 3.0)
	q2.Depth = depth(30)
	q3 := quakeAt(near, ref.Add(-36*time.Hour), 2.5)

	b := NewBuilder(&memoryEvents{events: []domain.HazardEvent{q1, q2, q3}}, nil)
	v, err := b.Build(context.Background(), testSite, ref, p)
	require.NoError(t, err)

	assert.InDelta(t, 1, valueOf(t, v, "quakes_7d_count"), 0)
	assert.InDelta(t, 3, valueOf(t, v, "quakes_30d_count"), 0)
	assert.InDelta(t, 1, valueOf(t, v, "quakes_high_magnitude_30d"), 0)
	assert.InDelta(t, 20, valueOf(t, v, "quake_avg_depth_30d"), 1e-9)
	assert.InDelta(t, -1, valueOf(t, v, "seismic_trend"), 0)
	assert.InDelta(t, 1, valueOf(t, v, "days_since_last_quake"), 0)
	assert.InDelta(t, 0, valueOf(t, v, "season"), 0)
}

func TestBuild_WeatherWindowEndsBeforeReferenceDay(t *testing.T) {
	ref := time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC)
	weather := &memoryWeather{days: weekOfWeather(ref.Truncate(24*time.Hour), 7)}
	b := NewBuilder(&memoryEvents{}, weather)

	_, err := b.Build(context.Background(), testSite, ref, domain.DefaultParams(domain.HazardFire))
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC), weather.gotFrom)
	assert.Equal(t, time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC), weather.gotTo)
}

func TestBuild_DataUnavailable(t *testing.T) {
	ref := time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)
	p := domain.DefaultParams(domain.HazardFire)

	tests := []struct {
		name    string
		builder *Builder
	}{
		{"event store fails", NewBuilder(&memoryEvents{err: errUpstream}, &memoryWeather{days: weekOfWeather(ref, 7)})},
		{"weather fails", NewBuilder(&memoryEvents{}, &memoryWeather{err: errUpstream})},
		{"weather empty", NewBuilder(&memoryEvents{}, &memoryWeather{})},
		{"no weather source", NewBuilder(&memoryEvents{}, nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build(context.Background(), testSite, ref, p)
			require.ErrorIs(t, err, domain.ErrDataUnavailable)
		})
	}
}

func TestBuild_InvalidSite(t *testing.T) {
	b := NewBuilder(&memoryEvents{}, nil)
	_, err := b.Build(context.Background(), domain.Site{Name: "bad", Lat: 120}, time.Now(), domain.DefaultParams(domain.HazardQuake))
	require.ErrorIs(t, err, domain.ErrInvalidCoordinate)
}

func TestSample_FeaturesDoNotSeeLookahead(t *testing.T) {
	ref := time.Date(2024, 8, 15, 0, 0, 0, 0, time.UTC)
	p := domain.DefaultParams(domain.HazardQuake)
	events := &memoryEvents{events: []domain.HazardEvent{quakeAt(eastOf(5), ref.Add(time.Hour), 6.1)}}

	s, err := NewBuilder(events, nil).Sample(context.Background(), testSite, ref, p)
	require.NoError(t, err)

	assert.Equal(t, 1, s.Label)
	assert.InDelta(t, 0, s.Features[0], 0, "lookahead event must not appear in lookback counts")
	assert.Equal(t, ref, s.Reference)
}

func TestAggregateWeather(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	days := []domain.DailyWeather{
		{Date: base.AddDate(0, 0, 2), TempMean: 30, TempMax: 35, HumidityMean: 20, HumidityMin: 10, WindMax: 40, Precipitation: 0},
		{Date: base, TempMean: 10, TempMax: 15, HumidityMean: 80, HumidityMin: 60, WindMax: 10, Precipitation: 5},
		{Date: base.AddDate(0, 0, 1), TempMean: 20, TempMax: 25, HumidityMean: 50, HumidityMin: 30, WindMax: 20, Precipitation: 0.5},
		{Date: base.AddDate(0, 0, 3), TempMean: 20, TempMax: 22, HumidityMean: 50, HumidityMin: 35, WindMax: 5, Precipitation: 2},
	}

	got := AggregateWeather(days)
	want := WeatherStats{
		TempMean:     20,
		TempMax:      35,
		HumidityMean: 50,
		HumidityMin:  10,
		WindMax:      40,
		RainTotal:    7.5,
		DryDays:      2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("AggregateWeather mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, base.AddDate(0, 0, 2), days[0].Date, "input must not be reordered")
}

func TestSeason(t *testing.T) {
	tests := []struct {
		month time.Month
		want  int
	}{
		{time.January, 0}, {time.February, 0}, {time.December, 0},
		{time.March, 1}, {time.May, 1},
		{time.June, 2}, {time.August, 2},
		{time.September, 3}, {time.November, 3},
	}
	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, Season(tt.month))
		})
	}
}
