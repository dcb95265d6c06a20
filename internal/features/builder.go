package features

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/riskradar/internal/domain"
)

// Builder computes feature vectors from the event store and weather source.
// It holds no mutable state and is safe for concurrent use.
type Builder struct {
	events  domain.EventStore
	weather domain.WeatherSource
}

// NewBuilder creates a feature builder. weather may be nil when only quake
// features are built.
func NewBuilder(events domain.EventStore, weather domain.WeatherSource) *Builder {
	return &Builder{events: events, weather: weather}
}

// Build returns the feature vector for a site at reference time ref. Only
// events strictly before ref contribute. Collaborator failures are reported
// as domain.ErrDataUnavailable.
func (b *Builder) Build(ctx context.Context, site domain.Site, ref time.Time, p domain.HazardParams) (Vector, error) {
	if err := site.Point().Validate(); err != nil {
		return Vector{}, err
	}

	found, err := b.events.Events(ctx, domain.EventQuery{
		Hazard:   p.Hazard,
		Center:   site.Point(),
		RadiusKM: p.FeatureRadiusKM,
		From:     ref.Add(-lookbackSpan(p)),
		To:       ref,
	})
	if err != nil {
		return Vector{}, fmt.Errorf("%w: %s history for %s: %w", domain.ErrDataUnavailable, p.Hazard, site.Name, err)
	}
	history := summarizeHistory(qualifying(found, site, p), ref, p)

	var w WeatherStats
	if p.Hazard == domain.HazardFire {
		w, err = b.weatherStats(ctx, site, ref, p)
		if err != nil {
			return Vector{}, err
		}
	}

	return assemble(p, site, ref, history, w), nil
}

// Sample builds the features and label for one (site, reference) cell.
func (b *Builder) Sample(ctx context.Context, site domain.Site, ref time.Time, p domain.HazardParams) (domain.Sample, error) {
	v, err := b.Build(ctx, site, ref, p)
	if err != nil {
		return domain.Sample{}, err
	}
	label, err := Label(ctx, b.events, site, ref, p)
	if err != nil {
		return domain.Sample{}, err
	}
	return domain.Sample{Site: site, Reference: ref, Features: v.Values, Label: label}, nil
}

// weatherStats aggregates the WeatherLookbackDays calendar days before ref's date.
func (b *Builder) weatherStats(ctx context.Context, site domain.Site, ref time.Time, p domain.HazardParams) (WeatherStats, error) {
	if b.weather == nil {
		return WeatherStats{}, fmt.Errorf("%w: no weather source configured", domain.ErrDataUnavailable)
	}
	day := ref.UTC().Truncate(24 * time.Hour)
	to := day.AddDate(0, 0, -1)
	from := day.AddDate(0, 0, -p.WeatherLookbackDays)

	days, err := b.weather.DailyWeather(ctx, site.Point(), from, to)
	if err != nil {
		if errors.Is(err, domain.ErrDataUnavailable) {
			return WeatherStats{}, err
		}
		return WeatherStats{}, fmt.Errorf("%w: weather for %s: %w", domain.ErrDataUnavailable, site.Name, err)
	}
	if len(days) == 0 {
		return WeatherStats{}, fmt.Errorf("%w: no weather for %s between %s and %s",
			domain.ErrDataUnavailable, site.Name, from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	return AggregateWeather(days), nil
}

func qualifying(events []domain.HazardEvent, site domain.Site, p domain.HazardParams) []domain.HazardEvent {
	out := make([]domain.HazardEvent, 0, len(events))
	for _, e := range events {
		if e.Hazard != p.Hazard || e.Intensity() < p.MinIntensity {
			continue
		}
		if !domain.WithinRadius(site.Point(), e.Point(), p.FeatureRadiusKM) {
			continue
		}
		out = append(out, e)
	}
	return out
}
