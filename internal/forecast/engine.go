// Package forecast scores current site features against trained model
// artifacts and produces per-site, per-hazard forecasts.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/riskradar/internal/domain"
	"github.com/couchcryptid/riskradar/internal/features"
	"github.com/couchcryptid/riskradar/internal/model"
	"github.com/couchcryptid/riskradar/internal/observability"
	"github.com/couchcryptid/riskradar/internal/risk"
)

// FeatureSource builds the feature vector for a site at a reference time.
// *features.Builder satisfies it.
type FeatureSource interface {
	Build(ctx context.Context, site domain.Site, ref time.Time, p domain.HazardParams) (features.Vector, error)
}

// Options tunes the engine.
type Options struct {
	// WeatherAdjustment scales fire probabilities by the temperature and
	// humidity rules in AdjustFire.
	WeatherAdjustment bool
	Workers           int
}

// DefaultOptions returns the engine defaults.
func DefaultOptions() Options {
	return Options{Workers: 8}
}

// HazardForecast is one hazard's outcome at one site.
type HazardForecast struct {
	Available      bool                  `json:"available"`
	Probability    float64               `json:"probability"`
	Classification domain.Classification `json:"classification,omitempty"`
	// Raw is the classifier output before any weather adjustment.
	Raw        float64 `json:"raw_probability"`
	Adjustment float64 `json:"adjustment,omitempty"`
}

// SiteForecast collects both hazards for one site.
type SiteForecast struct {
	Site     domain.Site    `json:"site"`
	Fire     HazardForecast `json:"fire"`
	Quake    HazardForecast `json:"quake"`
	Combined float64        `json:"combined"`
}

// Result is one forecast run.
type Result struct {
	GeneratedAt time.Time
	Sites       []SiteForecast
	Records     []domain.ForecastRecord
	// Aborted lists hazards whose whole forecast was abandoned, with the reason.
	Aborted map[domain.HazardType]string
}

// Predictions converts the result into aggregator input. Sites with no
// available hazard are left out, so lookups treat them as probability 0.
func (r *Result) Predictions() []risk.SitePrediction {
	out := make([]risk.SitePrediction, 0, len(r.Sites))
	for _, s := range r.Sites {
		if !s.Fire.Available && !s.Quake.Available {
			continue
		}
		out = append(out, risk.SitePrediction{
			Site:          s.Site,
			Probabilities: risk.Probabilities{Fire: s.Fire.Probability, Quake: s.Quake.Probability, Combined: s.Combined},
		})
	}
	return out
}

// Engine applies one artifact per hazard type. Artifacts are read-only once
// loaded, so an Engine can score many sites concurrently.
type Engine struct {
	models   map[domain.HazardType]*model.Artifact
	features FeatureSource
	opts     Options
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewEngine requires a valid artifact for every hazard type.
func NewEngine(artifacts []*model.Artifact, src FeatureSource, opts Options, logger *slog.Logger, metrics *observability.Metrics) (*Engine, error) {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	models := make(map[domain.HazardType]*model.Artifact, len(artifacts))
	for _, a := range artifacts {
		if a == nil {
			continue
		}
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("%s model: %w", a.Hazard, err)
		}
		models[a.Hazard] = a
	}
	for _, h := range domain.HazardTypes {
		if _, ok := models[h]; !ok {
			return nil, fmt.Errorf("%w: no %s model loaded", domain.ErrModelArtifactMissing, h)
		}
	}
	return &Engine{models: models, features: src, opts: opts, logger: logger, metrics: metrics}, nil
}

type scored struct {
	available bool
	vector    features.Vector
	prob      float64
}

// Forecast scores every site for every hazard at time at. A site whose
// features cannot be built is marked unavailable for that hazard. A feature
// schema mismatch abandons the hazard for all sites and is reported in
// Result.Aborted; any other failure is returned.
func (e *Engine) Forecast(ctx context.Context, sites []domain.Site, at time.Time) (*Result, error) {
	start := time.Now()
	defer func() { e.metrics.ForecastDuration.Observe(time.Since(start).Seconds()) }()

	res := &Result{
		GeneratedAt: at,
		Sites:       make([]SiteForecast, len(sites)),
		Aborted:     map[domain.HazardType]string{},
	}
	for i, s := range sites {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("site %q: %w", s.Name, err)
		}
		res.Sites[i] = SiteForecast{Site: s}
	}

	for _, h := range domain.HazardTypes {
		a := e.models[h]
		out, err := e.scoreHazard(ctx, a, sites, at)
		if errors.Is(err, domain.ErrFeatureSchemaMismatch) {
			e.logger.Error("forecast aborted for hazard", "hazard", h, "model", a.Version, "error", err)
			e.metrics.ForecastErrors.WithLabelValues(string(h)).Inc()
			res.Aborted[h] = err.Error()
			continue
		}
		if err != nil {
			return nil, err
		}

		for i, sc := range out {
			if !sc.available {
				continue
			}
			hf := HazardForecast{Available: true, Raw: sc.prob, Probability: sc.prob}
			if h == domain.HazardFire && e.opts.WeatherAdjustment {
				hf.Probability, hf.Adjustment = AdjustFire(sc.prob, sc.vector)
			}
			hf.Classification = a.Classify(hf.Probability)

			switch h {
			case domain.HazardFire:
				res.Sites[i].Fire = hf
			case domain.HazardQuake:
				res.Sites[i].Quake = hf
			}
			res.Records = append(res.Records, domain.ForecastRecord{
				Site:           sites[i],
				Hazard:         h,
				Probability:    hf.Probability,
				Classification: hf.Classification,
				Threshold:      a.Threshold,
				ModelVersion:   a.Version,
				GeneratedAt:    at,
			})
			e.metrics.Forecasts.WithLabelValues(string(h), string(hf.Classification)).Inc()
			e.metrics.ForecastProbability.WithLabelValues(string(h)).Observe(hf.Probability)
		}
	}

	for i := range res.Sites {
		s := &res.Sites[i]
		s.Combined = risk.NoisyOR(s.Fire.Probability, s.Quake.Probability)
	}

	e.logger.Info("forecast complete",
		"sites", len(sites),
		"records", len(res.Records),
		"aborted", len(res.Aborted),
		"generated_at", at,
	)
	return res, nil
}

func (e *Engine) scoreHazard(ctx context.Context, a *model.Artifact, sites []domain.Site, at time.Time) ([]scored, error) {
	out := make([]scored, len(sites))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, site := range sites {
		g.Go(func() error {
			v, err := e.features.Build(gctx, site, at, a.Params)
			if errors.Is(err, domain.ErrDataUnavailable) {
				e.logger.Warn("site skipped, features unavailable", "hazard", a.Hazard, "site", site.Name, "error", err)
				e.metrics.ForecastErrors.WithLabelValues(string(a.Hazard)).Inc()
				return nil
			}
			if err != nil {
				return fmt.Errorf("%s features for %s: %w", a.Hazard, site.Name, err)
			}
			p, err := a.Predict(v)
			if err != nil {
				return err
			}
			out[i] = scored{available: true, vector: v, prob: p}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
