// Package mockdata generates a seeded, self-consistent set of fire
// detections, earthquakes and daily weather around a site list. The data is
// synthetic but shaped like the real feeds: fires follow hot dry spells and
// quake magnitudes follow a Gutenberg-Richter distribution.
package mockdata

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/riskradar/internal/domain"
)

// Data is one generated set.
type Data struct {
	Events  []domain.HazardEvent
	Weather map[string][]domain.DailyWeather // keyed by site name
}

// Options controls generation.
type Options struct {
	From time.Time
	To   time.Time // exclusive
	Seed uint64
	// FireRate and QuakeRate scale the daily event probabilities. Zero uses the defaults.
	FireRate  float64
	QuakeRate float64
}

const (
	defaultFireRate  = 0.15
	defaultQuakeRate = 0.04
	kmPerDegree      = 111.19
)

type siteProfile struct {
	site       domain.Site
	fireProne  float64
	quakeProne float64
	baseTemp   float64
}

// Generate produces events and weather for every site and every UTC day in
// [From, To). The same options always produce the same data.
func Generate(sites []domain.Site, opts Options) (*Data, error) {
	if !opts.To.After(opts.From) {
		return nil, fmt.Errorf("mockdata: empty date range %s..%s", opts.From.Format(time.DateOnly), opts.To.Format(time.DateOnly))
	}
	if opts.FireRate <= 0 {
		opts.FireRate = defaultFireRate
	}
	if opts.QuakeRate <= 0 {
		opts.QuakeRate = defaultQuakeRate
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	profiles := make([]siteProfile, len(sites))
	for i, s := range sites {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("mockdata: %w", err)
		}
		profiles[i] = siteProfile{
			site:       s,
			fireProne:  rng.Float64(),
			quakeProne: rng.Float64(),
			baseTemp:   28 - 0.45*math.Abs(s.Lat-15),
		}
	}

	data := &Data{Weather: make(map[string][]domain.DailyWeather, len(sites))}
	start := opts.From.UTC().Truncate(24 * time.Hour)
	for _, sp := range profiles {
		dry := 0
		for day := start; day.Before(opts.To); day = day.AddDate(0, 0, 1) {
			w := weatherFor(rng, sp, day)
			data.Weather[sp.site.Name] = append(data.Weather[sp.site.Name], w)
			if w.Precipitation < 1 {
				dry++
			} else {
				dry = 0
			}

			if rng.Float64() < fireChance(sp, w, dry, opts.FireRate) {
				data.Events = append(data.Events, fireCluster(rng, sp.site, day)...)
			}
			if rng.Float64() < sp.quakeProne*opts.QuakeRate {
				data.Events = append(data.Events, quake(rng, sp.site, day))
			}
		}
	}
	return data, nil
}

func weatherFor(rng *rand.Rand, sp siteProfile, day time.Time) domain.DailyWeather {
	// Peak warmth around late July in the north and late January in the south.
	phase := 2 * math.Pi * float64(day.YearDay()-205) / 365
	season := math.Cos(phase)
	if sp.site.Lat < 0 {
		season = -season
	}
	mean := sp.baseTemp + 9*season + rng.NormFloat64()*2.5
	spread := 5 + rng.Float64()*5
	humidity := clamp(70-1.2*(mean-15)+rng.NormFloat64()*8, 8, 100)

	precip := 0.0
	if rng.Float64() < clamp(0.15+humidity/400, 0, 0.6) {
		precip = rng.ExpFloat64() * 6
	}
	return domain.DailyWeather{
		Date:          day,
		TempMean:      round1(mean),
		TempMax:       round1(mean + spread),
		TempMin:       round1(mean - spread),
		HumidityMean:  round1(humidity),
		HumidityMin:   round1(clamp(humidity-10-rng.Float64()*15, 3, humidity)),
		WindMax:       round1(8 + rng.ExpFloat64()*10),
		Precipitation: round1(precip),
	}
}

func fireChance(sp siteProfile, w domain.DailyWeather, dryDays int, rate float64) float64 {
	heat := clamp((w.TempMax-18)/20, 0, 1.5)
	dryness := clamp((60-w.HumidityMin)/50, 0, 1)
	streak := math.Min(float64(dryDays)/10, 1)
	return clamp(rate*sp.fireProne*heat*(0.4+dryness)*(0.5+streak), 0, 0.9)
}

func fireCluster(rng *rand.Rand, s domain.Site, day time.Time) []domain.HazardEvent {
	n := 1 + rng.IntN(5)
	center := offset(s.Point(), rng.Float64()*2*math.Pi, rng.Float64()*90)
	at := day.Add(time.Duration(rng.IntN(24*60)) * time.Minute)
	out := make([]domain.HazardEvent, 0, n)
	for range n {
		p := offset(center, rng.Float64()*2*math.Pi, rng.Float64()*3)
		out = append(out, domain.HazardEvent{
			Hazard:         domain.HazardFire,
			Lat:            round4(p.Lat),
			Lon:            round4(p.Lon),
			Time:           at,
			Brightness:     round1(300 + rng.Float64()*90),
			RadiativePower: round1(5 + rng.ExpFloat64()*45),
		})
	}
	return out
}

func quake(rng *rand.Rand, s domain.Site, day time.Time) domain.HazardEvent {
	bearing := rng.Float64() * 2 * math.Pi
	dist := rng.Float64() * 180
	p := offset(s.Point(), bearing, dist)
	depth := round1(3 + rng.Float64()*60)
	// Gutenberg-Richter with b = 1 above M2.
	mag := 2 + rng.ExpFloat64()/math.Ln10
	return domain.HazardEvent{
		Hazard:    domain.HazardQuake,
		Lat:       round4(p.Lat),
		Lon:       round4(p.Lon),
		Time:      day.Add(time.Duration(rng.IntN(86400)) * time.Second),
		Magnitude: math.Round(mag*10) / 10,
		Depth:     &depth,
		Place:     fmt.Sprintf("%.0f km %s of %s", dist, compass(bearing), s.Name),
	}
}

// offset moves p distKM along bearing (radians from north) on a flat
// approximation, which is accurate enough at these distances.
func offset(p domain.Point, bearing, distKM float64) domain.Point {
	lat := p.Lat + distKM*math.Cos(bearing)/kmPerDegree
	lat = clamp(lat, -89.9, 89.9)
	lon := p.Lon + distKM*math.Sin(bearing)/(kmPerDegree*math.Cos(lat*math.Pi/180))
	switch {
	case lon > 180:
		lon -= 360
	case lon < -180:
		lon += 360
	}
	return domain.Point{Lat: lat, Lon: lon}
}

func compass(bearing float64) string {
	dirs := [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	i := int(math.Round(bearing/(math.Pi/4))) % len(dirs)
	return dirs[i]
}

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }
func round1(v float64) float64        { return math.Round(v*10) / 10 }
func round4(v float64) float64        { return math.Round(v*1e4) / 1e4 }
