package features

import (
	"fmt"
	"time"

	"github.com/couchcryptid/riskradar/internal/domain"
)

// DaysSinceSentinel stands in for "no prior qualifying event" so that it is
// never confused with an event that happened moments ago.
const DaysSinceSentinel = 999

// Vector is an ordered feature vector paired with its column names.
type Vector struct {
	Names  []string
	Values []float64
}

func (v *Vector) add(name string, value float64) {
	v.Names = append(v.Names, name)
	v.Values = append(v.Values, value)
}

// Schema returns the ordered feature names produced for the given parameters.
func Schema(p domain.HazardParams) []string {
	v := assemble(p, domain.Site{}, time.Time{}, historyStats{}, WeatherStats{})
	return v.Names
}

// Season maps a calendar month to 0 (Dec-Feb), 1 (Mar-May), 2 (Jun-Aug), or 3 (Sep-Nov).
func Season(m time.Month) int {
	switch m {
	case time.December, time.January, time.February:
		return 0
	case time.March, time.April, time.May:
		return 1
	case time.June, time.July, time.August:
		return 2
	default:
		return 3
	}
}

// assemble is the single place that fixes feature order. Schema and Build
// both go through it so names and values cannot drift apart.
func assemble(p domain.HazardParams, site domain.Site, ref time.Time, h historyStats, w WeatherStats) Vector {
	var v Vector
	short := p.ShortWindowDays
	long := p.LongWindowDays

	switch p.Hazard {
	case domain.HazardFire:
		v.add(fmt.Sprintf("fires_%dd_count", short), float64(h.shortCount))
		v.add(fmt.Sprintf("fires_%dd_count", long), float64(h.longCount))
		v.add(fmt.Sprintf("fire_max_frp_%dd", short), h.shortMaxIntensity)
		v.add(fmt.Sprintf("fire_avg_frp_%dd", short), h.shortAvgIntensity)
		v.add(fmt.Sprintf("fire_max_brightness_%dd", short), h.shortMaxBrightness)
		v.add(fmt.Sprintf("fire_avg_brightness_%dd", short), h.shortAvgBrightness)
		v.add(fmt.Sprintf("fires_high_intensity_%dd", long), float64(h.longHighCount))
		v.add("fires_persistent_days", float64(h.shortActiveDays))
		v.add("fire_trend", float64(h.trend))
		v.add("days_since_last_fire", h.daysSinceLast)
		v.add("temp_mean", w.TempMean)
		v.add("temp_max", w.TempMax)
		v.add("humidity_mean", w.HumidityMean)
		v.add("humidity_min", w.HumidityMin)
		v.add("wind_max", w.WindMax)
		v.add("rain_total", w.RainTotal)
		v.add("dry_days", float64(w.DryDays))
	case domain.HazardQuake:
		v.add(fmt.Sprintf("quakes_%dd_count", short), float64(h.shortCount))
		v.add(fmt.Sprintf("quakes_%dd_count", long), float64(h.longCount))
		v.add(fmt.Sprintf("quake_max_mag_%dd", short), h.shortMaxIntensity)
		v.add(fmt.Sprintf("quake_avg_mag_%dd", short), h.shortAvgIntensity)
		v.add(fmt.Sprintf("quakes_high_magnitude_%dd", long), float64(h.longHighCount))
		v.add(fmt.Sprintf("quake_avg_depth_%dd", long), h.longAvgDepth)
		v.add("seismic_trend", float64(h.trend))
		v.add("days_since_last_quake", h.daysSinceLast)
	}

	v.add("latitude", site.Lat)
	v.add("longitude", site.Lon)
	v.add("month", float64(ref.Month()))
	v.add("season", float64(Season(ref.Month())))
	return v
}
