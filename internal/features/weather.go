package features

import (
	"math"
	"sort"

	"github.com/couchcryptid/riskradar/internal/domain"
)

// DryDayPrecipitationMM is the daily precipitation below which a day counts as dry.
const DryDayPrecipitationMM = 1.0

// WeatherStats are the weather aggregates over a lookback window.
type WeatherStats struct {
	TempMean     float64 `json:"temp_mean"`
	TempMax      float64 `json:"temp_max"`
	HumidityMean float64 `json:"humidity_mean"`
	HumidityMin  float64 `json:"humidity_min"`
	WindMax      float64 `json:"wind_max"`
	RainTotal    float64 `json:"rain_total"`
	DryDays      int     `json:"dry_days"`
}

// AggregateWeather folds daily records into WeatherStats. DryDays is the
// longest run of consecutive dry days. The input slice is not modified.
func AggregateWeather(days []domain.DailyWeather) WeatherStats {
	if len(days) == 0 {
		return WeatherStats{}
	}

	sorted := make([]domain.DailyWeather, len(days))
	copy(sorted, days)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	s := WeatherStats{
		TempMax:     math.Inf(-1),
		HumidityMin: math.Inf(1),
		WindMax:     math.Inf(-1),
	}
	var tempSum, humSum float64
	run := 0
	for _, d := range sorted {
		tempSum += d.TempMean
		humSum += d.HumidityMean
		s.TempMax = math.Max(s.TempMax, d.TempMax)
		s.HumidityMin = math.Min(s.HumidityMin, d.HumidityMin)
		s.WindMax = math.Max(s.WindMax, d.WindMax)
		s.RainTotal += d.Precipitation

		if d.Precipitation < DryDayPrecipitationMM {
			run++
			if run > s.DryDays {
				s.DryDays = run
			}
		} else {
			run = 0
		}
	}
	n := float64(len(sorted))
	s.TempMean = tempSum / n
	s.HumidityMean = humSum / n
	return s
}
