package features

import (
	"math"
	"time"

	"github.com/couchcryptid/riskradar/internal/domain"
)

type historyStats struct {
	shortCount         int
	longCount          int
	shortMaxIntensity  float64
	shortAvgIntensity  float64
	shortMaxBrightness float64
	shortAvgBrightness float64
	longHighCount      int
	longAvgDepth       float64
	shortActiveDays    int
	trend              int
	daysSinceLast      float64
}

// summarizeHistory aggregates qualifying events from the lookback. Events
// must already be filtered to the hazard, radius, and intensity cutoff; only
// those strictly before ref are counted.
func summarizeHistory(events []domain.HazardEvent, ref time.Time, p domain.HazardParams) historyStats {
	shortStart := ref.Add(-p.ShortWindow())
	priorStart := shortStart.Add(-p.ShortWindow())
	longStart := ref.Add(-p.LongWindow())

	s := historyStats{daysSinceLast: DaysSinceSentinel}
	var (
		intensitySum, brightnessSum, depthSum float64
		depthCount, priorCount                int
		last                                  time.Time
		activeDays                            = make(map[string]struct{})
	)

	for _, e := range events {
		if !e.Time.Before(ref) {
			continue
		}
		if last.IsZero() || e.Time.After(last) {
			last = e.Time
		}

		if !e.Time.Before(priorStart) && e.Time.Before(shortStart) {
			priorCount++
		}

		if !e.Time.Before(longStart) {
			s.longCount++
			if e.Intensity() >= p.HighIntensity {
				s.longHighCount++
			}
			if e.Depth != nil {
				depthSum += *e.Depth
				depthCount++
			}
		}

		if !e.Time.Before(shortStart) {
			s.shortCount++
			intensitySum += e.Intensity()
			brightnessSum += e.Brightness
			s.shortMaxIntensity = math.Max(s.shortMaxIntensity, e.Intensity())
			s.shortMaxBrightness = math.Max(s.shortMaxBrightness, e.Brightness)
			activeDays[e.Time.UTC().Format(time.DateOnly)] = struct{}{}
		}
	}

	if s.shortCount > 0 {
		s.shortAvgIntensity = intensitySum / float64(s.shortCount)
		s.shortAvgBrightness = brightnessSum / float64(s.shortCount)
	}
	if depthCount > 0 {
		s.longAvgDepth = depthSum / float64(depthCount)
	}
	s.shortActiveDays = len(activeDays)
	s.trend = s.shortCount - priorCount

	if !last.IsZero() {
		d := math.Floor(ref.Sub(last).Hours() / 24)
		s.daysSinceLast = math.Min(d, DaysSinceSentinel)
	}
	return s
}

// lookbackSpan is how far back history must be fetched to fill every window.
func lookbackSpan(p domain.HazardParams) time.Duration {
	span := p.LongWindow()
	if trendSpan := 2 * p.ShortWindow(); trendSpan > span {
		span = trendSpan
	}
	return span
}
