// Package risk combines per-site hazard probabilities into route-level and
// location-profile risk using noisy-OR aggregation.
//
// Fire, quake, and combined probabilities are aggregated independently: the
// combined aggregate is the noisy-OR of each site's own combined probability,
// not a combination of the fire and quake aggregates.
package risk

import "math"

// Probabilities holds the three separately tracked probabilities for one
// site or one aggregate, each in [0, 1].
type Probabilities struct {
	Fire     float64 `json:"fire"`
	Quake    float64 `json:"quake"`
	Combined float64 `json:"combined"`
}

// Percent converts to the 0-100 scale used in exports.
func (p Probabilities) Percent() Probabilities {
	return Probabilities{Fire: p.Fire * 100, Quake: p.Quake * 100, Combined: p.Combined * 100}
}

// SiteProbabilities builds a site's probabilities from its fire and quake
// forecasts, with combined = 1 - (1-fire)(1-quake).
func SiteProbabilities(fire, quake float64) Probabilities {
	fire, quake = clamp(fire), clamp(quake)
	return Probabilities{Fire: fire, Quake: quake, Combined: NoisyOR(fire, quake)}
}

// NoisyOR returns 1 - Π(1 - p_i), the probability that at least one of the
// independent events occurs. Inputs are clamped to [0, 1]; no inputs yields 0.
func NoisyOR(ps ...float64) float64 {
	miss := 1.0
	for _, p := range ps {
		miss *= 1 - clamp(p)
	}
	return 1 - miss
}

// Aggregate applies NoisyOR to each hazard across points. It is pure,
// order-independent, and returns zeros for an empty input.
func Aggregate(points []Probabilities) Probabilities {
	fireMiss, quakeMiss, combinedMiss := 1.0, 1.0, 1.0
	for _, p := range points {
		fireMiss *= 1 - clamp(p.Fire)
		quakeMiss *= 1 - clamp(p.Quake)
		combinedMiss *= 1 - clamp(p.Combined)
	}
	return Probabilities{Fire: 1 - fireMiss, Quake: 1 - quakeMiss, Combined: 1 - combinedMiss}
}

func clamp(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
