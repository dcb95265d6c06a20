package forecast

import (
	"math"

	"github.com/couchcryptid/riskradar/internal/features"
)

// Defaults used when the vector carries no weather features.
const (
	defaultTempMean     = 15.0
	defaultHumidityMean = 60.0
	defaultHumidityMin  = 50.0
)

// AdjustFire scales a fire probability by the observed weather in v. Cold
// or damp conditions dampen it and hot, dry conditions amplify it. The
// result is capped at 1. It returns the adjusted probability and the
// multiplier that was applied.
func AdjustFire(p float64, v features.Vector) (float64, float64) {
	temp := lookup(v, "temp_mean", defaultTempMean)
	humMean := lookup(v, "humidity_mean", defaultHumidityMean)
	humMin := lookup(v, "humidity_min", defaultHumidityMin)

	factor := 1.0
	switch {
	case temp <= 0 && humMean > 70:
		factor = 0.01
	case temp <= 0:
		factor = 0.05
	case temp < 5:
		factor = 0.2
	case temp < 10:
		factor = 0.5
	case temp < 25 && humMin > 40:
		factor = 0.85
	}

	switch {
	case temp > 35 && humMin < 20:
		factor *= 1.5
	case temp > 30 && humMin < 30:
		factor *= 1.3
	}

	return math.Min(p*factor, 1), factor
}

func lookup(v features.Vector, name string, fallback float64) float64 {
	for i, n := range v.Names {
		if n == name && i < len(v.Values) {
			return v.Values[i]
		}
	}
	return fallback
}
