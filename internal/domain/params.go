package domain

import (
	"fmt"
	"time"
)

// HazardParams fixes the spatial, temporal, and intensity parameters of one
// hazard type. The same values must be used to build training samples and
// inference features, so every model artifact stores the params it was trained with.
type HazardParams struct {
	Hazard HazardType `json:"hazard" yaml:"hazard"`

	LabelRadiusKM   float64 `json:"label_radius_km" yaml:"label_radius_km"`
	FeatureRadiusKM float64 `json:"feature_radius_km" yaml:"feature_radius_km"`

	HorizonHours        int `json:"horizon_hours" yaml:"horizon_hours"`
	ShortWindowDays     int `json:"short_window_days" yaml:"short_window_days"`
	LongWindowDays      int `json:"long_window_days" yaml:"long_window_days"`
	WeatherLookbackDays int `json:"weather_lookback_days" yaml:"weather_lookback_days"`

	MinIntensity  float64 `json:"min_intensity" yaml:"min_intensity"`
	HighIntensity float64 `json:"high_intensity" yaml:"high_intensity"`

	// Training date range, end exclusive.
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`

	ClassWeight  float64 `json:"class_weight" yaml:"class_weight"`
	Threshold    float64 `json:"threshold" yaml:"threshold"`
	TargetRecall float64 `json:"target_recall,omitempty" yaml:"target_recall,omitempty"`
}

// Horizon returns the forecast lookahead.
func (p HazardParams) Horizon() time.Duration {
	return time.Duration(p.HorizonHours) * time.Hour
}

// ShortWindow returns the short lookback window.
func (p HazardParams) ShortWindow() time.Duration {
	return days(p.ShortWindowDays)
}

// LongWindow returns the long lookback window.
func (p HazardParams) LongWindow() time.Duration {
	return days(p.LongWindowDays)
}

// Validate rejects parameter sets that cannot produce meaningful samples.
func (p HazardParams) Validate() error {
	switch {
	case p.Hazard != HazardFire && p.Hazard != HazardQuake:
		return fmt.Errorf("%w: %q", ErrUnknownHazard, p.Hazard)
	case p.LabelRadiusKM <= 0 || p.FeatureRadiusKM <= 0:
		return fmt.Errorf("%s: radii must be positive", p.Hazard)
	case p.HorizonHours <= 0:
		return fmt.Errorf("%s: horizon must be positive", p.Hazard)
	case p.ShortWindowDays <= 0 || p.LongWindowDays < p.ShortWindowDays:
		return fmt.Errorf("%s: windows must satisfy 0 < short <= long", p.Hazard)
	case p.Hazard == HazardFire && p.WeatherLookbackDays <= 0:
		return fmt.Errorf("%s: weather lookback must be positive", p.Hazard)
	case !p.End.After(p.Start):
		return fmt.Errorf("%s: date range end must be after start", p.Hazard)
	case p.ClassWeight <= 0:
		return fmt.Errorf("%s: class weight must be positive", p.Hazard)
	case p.Threshold <= 0 || p.Threshold >= 1:
		return fmt.Errorf("%s: threshold must be in (0, 1)", p.Hazard)
	case p.TargetRecall < 0 || p.TargetRecall > 1:
		return fmt.Errorf("%s: target recall must be in [0, 1]", p.Hazard)
	}
	return nil
}

// SameFeatureSemantics reports whether features built with p and o mean the same thing.
// Training-only knobs (date range, class weight, threshold) are ignored.
func (p HazardParams) SameFeatureSemantics(o HazardParams) bool {
	return p.Hazard == o.Hazard &&
		p.FeatureRadiusKM == o.FeatureRadiusKM &&
		p.ShortWindowDays == o.ShortWindowDays &&
		p.LongWindowDays == o.LongWindowDays &&
		p.WeatherLookbackDays == o.WeatherLookbackDays &&
		p.MinIntensity == o.MinIntensity &&
		p.HighIntensity == o.HighIntensity
}

// DefaultParams returns the documented starting parameters for a hazard.
// Class weights and thresholds are empirically tuned starting points.
func DefaultParams(h HazardType) HazardParams {
	switch h {
	case HazardFire:
		return HazardParams{
			Hazard:              HazardFire,
			LabelRadiusKM:       100,
			FeatureRadiusKM:     50,
			HorizonHours:        72,
			ShortWindowDays:     7,
			LongWindowDays:      30,
			WeatherLookbackDays: 7,
			MinIntensity:        30,
			HighIntensity:       100,
			// FIRMS coverage for the site list starts in 2024.
			Start:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			End:         time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
			ClassWeight: 10,
			Threshold:   0.3,
		}
	case HazardQuake:
		return HazardParams{
			Hazard:              HazardQuake,
			LabelRadiusKM:       150,
			FeatureRadiusKM:     100,
			HorizonHours:        72,
			ShortWindowDays:     7,
			LongWindowDays:      30,
			WeatherLookbackDays: 7,
			MinIntensity:        2.0,
			HighIntensity:       5.0,
			Start:               time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
			End:                 time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC),
			ClassWeight:         15,
			Threshold:           0.4,
		}
	}
	return HazardParams{Hazard: h}
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
