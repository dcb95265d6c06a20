package forecast

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/couchcryptid/riskradar/internal/domain"
	"github.com/couchcryptid/riskradar/internal/model"
	"github.com/couchcryptid/riskradar/internal/risk"
)

// Historical event limits for the export.
const (
	HistoryWindow       = 30 * 24 * time.Hour
	MaxHistoricalFires  = 500
	MaxHistoricalQuakes = 200
)

// Export is the JSON document handed to visualization consumers.
type Export struct {
	Predictions      map[string]ExportPrediction        `json:"predictions"`
	Sites            []ExportSite                       `json:"sites"`
	HistoricalEvents HistoricalEvents                   `json:"historical_events"`
	Routes           []risk.RouteResult                 `json:"routes,omitempty"`
	Models           map[domain.HazardType]ModelSummary `json:"models"`
	Aborted          map[domain.HazardType]string       `json:"aborted,omitempty"`
	Metadata         Metadata                           `json:"metadata"`
}

// ExportPrediction is a site's risk on the 0-100 scale.
type ExportPrediction struct {
	FireRisk  float64    `json:"fire_risk"`
	QuakeRisk float64    `json:"quake_risk"`
	Combined  float64    `json:"combined"`
	Level     risk.Level `json:"level"`
}

// ExportSite is the per-site forecast record.
type ExportSite struct {
	Name             string                `json:"name"`
	Latitude         float64               `json:"latitude"`
	Longitude        float64               `json:"longitude"`
	FireRisk         domain.Classification `json:"fire_risk,omitempty"`
	FireProbability  *float64              `json:"fire_probability"`
	QuakeRisk        domain.Classification `json:"quake_risk,omitempty"`
	QuakeProbability *float64              `json:"quake_probability"`
}

// HistoricalEvents lists recent events for display.
type HistoricalEvents struct {
	Fires  []HistoricalPoint `json:"fires"`
	Quakes []HistoricalPoint `json:"quakes"`
}

// HistoricalPoint is one recent event.
type HistoricalPoint struct {
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Time           time.Time `json:"time"`
	Brightness     float64   `json:"brightness,omitempty"`
	RadiativePower float64   `json:"frp,omitempty"`
	Magnitude      float64   `json:"magnitude,omitempty"`
	Depth          *float64  `json:"depth,omitempty"`
	Place          string    `json:"place,omitempty"`
}

// ModelSummary reports the artifact behind each hazard's forecasts so
// consumers can judge confidence.
type ModelSummary struct {
	Version       string          `json:"version"`
	Threshold     float64         `json:"threshold"`
	Metrics       model.Metrics   `json:"metrics"`
	TrainingRange model.DateRange `json:"training_range"`
}

// Metadata describes the export itself.
type Metadata struct {
	GeneratedAt  time.Time `json:"generated_at"`
	HorizonHours int       `json:"horizon_hours"`
	SiteCount    int       `json:"site_count"`
}

// NewExport assembles the export document. history may hold events of both
// hazards; only those within HistoryWindow before the forecast time are kept,
// newest first.
func NewExport(res *Result, models []*model.Artifact, history []domain.HazardEvent, routes []risk.RouteResult) Export {
	ex := Export{
		Predictions: make(map[string]ExportPrediction, len(res.Sites)),
		Sites:       make([]ExportSite, 0, len(res.Sites)),
		Routes:      routes,
		Models:      make(map[domain.HazardType]ModelSummary, len(models)),
		Metadata: Metadata{
			GeneratedAt: res.GeneratedAt.UTC(),
			SiteCount:   len(res.Sites),
		},
		HistoricalEvents: recentEvents(history, res.GeneratedAt),
	}
	if len(res.Aborted) > 0 {
		ex.Aborted = res.Aborted
	}

	for _, s := range res.Sites {
		pct := risk.Probabilities{Fire: s.Fire.Probability, Quake: s.Quake.Probability, Combined: s.Combined}.Percent()
		ex.Predictions[s.Site.Name] = ExportPrediction{
			FireRisk:  pct.Fire,
			QuakeRisk: pct.Quake,
			Combined:  pct.Combined,
			Level:     risk.LevelFor(pct.Combined),
		}
		site := ExportSite{Name: s.Site.Name, Latitude: s.Site.Lat, Longitude: s.Site.Lon}
		if s.Fire.Available {
			site.FireRisk, site.FireProbability = s.Fire.Classification, ptr(s.Fire.Probability)
		}
		if s.Quake.Available {
			site.QuakeRisk, site.QuakeProbability = s.Quake.Classification, ptr(s.Quake.Probability)
		}
		ex.Sites = append(ex.Sites, site)
	}

	for _, a := range models {
		if a == nil {
			continue
		}
		ex.Models[a.Hazard] = ModelSummary{
			Version:       a.Version,
			Threshold:     a.Threshold,
			Metrics:       a.Metrics,
			TrainingRange: a.TrainingRange,
		}
		if h := a.Params.HorizonHours; h > ex.Metadata.HorizonHours {
			ex.Metadata.HorizonHours = h
		}
	}
	return ex
}

func recentEvents(events []domain.HazardEvent, at time.Time) HistoricalEvents {
	cutoff := at.Add(-HistoryWindow)
	recent := make([]domain.HazardEvent, 0, len(events))
	for _, e := range events {
		if e.Time.After(cutoff) && !e.Time.After(at) {
			recent = append(recent, e)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool { return recent[i].Time.After(recent[j].Time) })

	out := HistoricalEvents{Fires: []HistoricalPoint{}, Quakes: []HistoricalPoint{}}
	for _, e := range recent {
		pt := HistoricalPoint{Latitude: e.Lat, Longitude: e.Lon, Time: e.Time.UTC()}
		switch e.Hazard {
		case domain.HazardFire:
			if len(out.Fires) >= MaxHistoricalFires {
				continue
			}
			pt.Brightness, pt.RadiativePower = e.Brightness, e.RadiativePower
			out.Fires = append(out.Fires, pt)
		case domain.HazardQuake:
			if len(out.Quakes) >= MaxHistoricalQuakes {
				continue
			}
			pt.Magnitude, pt.Depth, pt.Place = e.Magnitude, e.Depth, e.Place
			out.Quakes = append(out.Quakes, pt)
		}
	}
	return out
}

// WriteJSON writes the export as indented JSON.
func (e Export) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// ReadExport decodes an export written by WriteJSON.
func ReadExport(r io.Reader) (Export, error) {
	var e Export
	if err := json.NewDecoder(r).Decode(&e); err != nil {
		return Export{}, fmt.Errorf("decode export: %w", err)
	}
	return e, nil
}

// SitePredictions rebuilds aggregator input from the per-site records.
// Sites with no available hazard are skipped.
func (e Export) SitePredictions() []risk.SitePrediction {
	out := make([]risk.SitePrediction, 0, len(e.Sites))
	for _, s := range e.Sites {
		if s.FireProbability == nil && s.QuakeProbability == nil {
			continue
		}
		var p risk.Probabilities
		if s.FireProbability != nil {
			p.Fire = *s.FireProbability
		}
		if s.QuakeProbability != nil {
			p.Quake = *s.QuakeProbability
		}
		p.Combined = risk.NoisyOR(p.Fire, p.Quake)
		out = append(out, risk.SitePrediction{
			Site:          domain.Site{Name: s.Name, Lat: s.Latitude, Lon: s.Longitude},
			Probabilities: p,
		})
	}
	return out
}

// WriteCSV writes one row per site, highest combined risk first.
func WriteCSV(w io.Writer, res *Result) error {
	sites := append([]SiteForecast(nil), res.Sites...)
	sort.SliceStable(sites, func(i, j int) bool { return sites[i].Combined > sites[j].Combined })

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"site", "latitude", "longitude",
		"fire_risk", "fire_probability", "quake_risk", "quake_probability", "combined_probability",
	}); err != nil {
		return err
	}
	for _, s := range sites {
		if err := cw.Write([]string{
			s.Site.Name,
			formatFloat(s.Site.Lat),
			formatFloat(s.Site.Lon),
			string(s.Fire.Classification),
			availableFloat(s.Fire),
			string(s.Quake.Classification),
			availableFloat(s.Quake),
			formatFloat(s.Combined),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func availableFloat(h HazardForecast) string {
	if !h.Available {
		return ""
	}
	return formatFloat(h.Probability)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func ptr(f float64) *float64 { return &f }
