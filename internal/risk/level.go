package risk

import "github.com/couchcryptid/riskradar/internal/domain"

// Level is a coarse risk band on the percentage scale.
type Level string

const (
	LevelLow      Level = "Low"
	LevelMedium   Level = "Medium"
	LevelHigh     Level = "High"
	LevelVeryHigh Level = "Very High"
)

// LevelFor maps a 0-100 percentage to a risk band.
func LevelFor(percent float64) Level {
	switch {
	case percent >= 75:
		return LevelVeryHigh
	case percent >= 50:
		return LevelHigh
	case percent >= 25:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Dominant names the hazard with the larger aggregate. Ties go to quake.
func Dominant(p Probabilities) domain.HazardType {
	if p.Fire > p.Quake {
		return domain.HazardFire
	}
	return domain.HazardQuake
}
