// Package dataset enumerates the (site × reference time) grid for one hazard
// type, turns each cell into a labeled sample, and splits the result into
// stratified train and test partitions.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/riskradar/internal/domain"
	"github.com/couchcryptid/riskradar/internal/features"
	"github.com/couchcryptid/riskradar/internal/observability"
)

// Cadence is the spacing between reference timestamps.
const Cadence = 7 * 24 * time.Hour

// SampleBuilder produces one labeled sample per grid cell.
type SampleBuilder interface {
	Sample(ctx context.Context, site domain.Site, ref time.Time, p domain.HazardParams) (domain.Sample, error)
}

// Options tune a dataset build.
type Options struct {
	Workers      int
	TestRatio    float64
	Seed         uint64
	MinPositives int
}

// DefaultOptions matches the reference training setup: 80/20 split, seed 42.
func DefaultOptions() Options {
	return Options{Workers: 8, TestRatio: 0.2, Seed: 42, MinPositives: 20}
}

// Report summarizes a build for logs and artifacts.
type Report struct {
	Cells          int     `json:"cells" yaml:"cells"`
	Dropped        int     `json:"dropped" yaml:"dropped"`
	Samples        int     `json:"samples" yaml:"samples"`
	Positives      int     `json:"positives" yaml:"positives"`
	PositiveRate   float64 `json:"positive_rate" yaml:"positive_rate"`
	TrainSamples   int     `json:"train_samples" yaml:"train_samples"`
	TrainPositives int     `json:"train_positives" yaml:"train_positives"`
	TestSamples    int     `json:"test_samples" yaml:"test_samples"`
	TestPositives  int     `json:"test_positives" yaml:"test_positives"`
	LowPositives   bool    `json:"low_positives" yaml:"low_positives"`
}

// Dataset is the split training table for one hazard type.
type Dataset struct {
	Params       domain.HazardParams
	FeatureNames []string
	Train        []domain.Sample
	Test         []domain.Sample
	Report       Report
}

// Builder runs the grid.
type Builder struct {
	samples SampleBuilder
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewBuilder creates a dataset builder.
func NewBuilder(samples SampleBuilder, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Builder {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Builder{samples: samples, opts: opts, logger: logger, metrics: metrics}
}

// ReferenceTimes returns start, start+cadence, ... strictly before end.
func ReferenceTimes(start, end time.Time, cadence time.Duration) []time.Time {
	if cadence <= 0 {
		return nil
	}
	var refs []time.Time
	for t := start; t.Before(end); t = t.Add(cadence) {
		refs = append(refs, t)
	}
	return refs
}

type cell struct {
	site domain.Site
	ref  time.Time
}

type result struct {
	sample domain.Sample
	ok     bool
}

// Build evaluates every (site, reference) cell in p's date range. Cells whose
// data is unavailable are dropped and counted. Any other error aborts the build.
func (b *Builder) Build(ctx context.Context, sites []domain.Site, p domain.HazardParams) (*Dataset, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	for _, s := range sites {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}

	refs := ReferenceTimes(p.Start, p.End, Cadence)
	cells := make([]cell, 0, len(sites)*len(refs))
	for _, s := range sites {
		for _, ref := range refs {
			cells = append(cells, cell{site: s, ref: ref})
		}
	}

	b.logger.Info("building dataset",
		"hazard", p.Hazard,
		"sites", len(sites),
		"references", len(refs),
		"cells", len(cells),
		"start", p.Start.Format(time.DateOnly),
		"end", p.End.Format(time.DateOnly),
	)

	// Each worker writes only its own slot, so results keep grid order
	// regardless of completion order.
	results := make([]result, len(cells))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)

	hazard := string(p.Hazard)
	for i, c := range cells {
		g.Go(func() error {
			s, err := b.samples.Sample(gctx, c.site, c.ref, p)
			if err != nil {
				if errors.Is(err, domain.ErrDataUnavailable) && gctx.Err() == nil {
					b.logger.Debug("dropping cell", "hazard", hazard, "site", c.site.Name, "reference", c.ref, "error", err)
					b.metrics.DatasetCells.WithLabelValues(hazard, "dropped").Inc()
					return nil
				}
				return fmt.Errorf("cell %s@%s: %w", c.site.Name, c.ref.Format(time.DateOnly), err)
			}
			results[i] = result{sample: s, ok: true}
			b.metrics.DatasetCells.WithLabelValues(hazard, "built").Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build %s dataset: %w", p.Hazard, err)
	}

	samples := make([]domain.Sample, 0, len(results))
	for _, r := range results {
		if r.ok {
			samples = append(samples, r.sample)
		}
	}

	train, test := StratifiedSplit(samples, b.opts.TestRatio, b.opts.Seed)
	ds := &Dataset{
		Params:       p,
		FeatureNames: features.Schema(p),
		Train:        train,
		Test:         test,
		Report: Report{
			Cells:          len(cells),
			Dropped:        len(cells) - len(samples),
			Samples:        len(samples),
			Positives:      countPositives(samples),
			PositiveRate:   PositiveRate(samples),
			TrainSamples:   len(train),
			TrainPositives: countPositives(train),
			TestSamples:    len(test),
			TestPositives:  countPositives(test),
		},
	}
	ds.Report.LowPositives = ds.Report.Positives < b.opts.MinPositives
	b.metrics.DatasetPositives.WithLabelValues(hazard).Set(float64(ds.Report.Positives))

	b.logger.Info("dataset built",
		"hazard", p.Hazard,
		"samples", ds.Report.Samples,
		"dropped", ds.Report.Dropped,
		"positives", ds.Report.Positives,
		"positive_rate", ds.Report.PositiveRate,
		"train_positives", ds.Report.TrainPositives,
		"test_positives", ds.Report.TestPositives,
	)
	if ds.Report.LowPositives {
		b.logger.Warn("too few positive samples for reliable training",
			"hazard", p.Hazard,
			"positives", ds.Report.Positives,
			"min_positives", b.opts.MinPositives,
			"error", domain.ErrInsufficientPositiveSamples,
		)
	}
	return ds, nil
}

func countPositives(samples []domain.Sample) int {
	n := 0
	for _, s := range samples {
		n += s.Label
	}
	return n
}
