// Package pipeline wires the training and forecasting stages together and
// runs the periodic forecast loop behind the HTTP service.
package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/riskradar/internal/domain"
	"github.com/couchcryptid/riskradar/internal/forecast"
	"github.com/couchcryptid/riskradar/internal/model"
	"github.com/couchcryptid/riskradar/internal/observability"
	"github.com/couchcryptid/riskradar/internal/risk"
)

// Forecaster scores every site at a reference time. *forecast.Engine satisfies it.
type Forecaster interface {
	Forecast(ctx context.Context, sites []domain.Site, at time.Time) (*forecast.Result, error)
}

// Publisher ships forecast records downstream.
type Publisher interface {
	Publish(ctx context.Context, records []domain.ForecastRecord) error
}

// HistorySource returns recent observed events for the export map layer.
type HistorySource interface {
	Recent(ctx context.Context, h domain.HazardType, from, to time.Time, limit int) ([]domain.HazardEvent, error)
}

// Options configures a forecast pipeline. Publisher, History, ExportPath
// and CSVPath are optional.
type Options struct {
	Sites      []domain.Site
	Models     []*model.Artifact
	Publisher  Publisher
	History    HistorySource
	ExportPath string
	CSVPath    string
	Interval   time.Duration
}

// Pipeline runs forecasts, publishes the records, refreshes the shared
// application state, and writes the JSON export.
type Pipeline struct {
	forecaster Forecaster
	state      *risk.AppState
	opts       Options
	logger     *slog.Logger
	metrics    *observability.Metrics
	ready      atomic.Bool

	mu     sync.RWMutex
	latest *forecast.Export
}

// New creates a Pipeline with the given forecaster, shared state and observability.
func New(f Forecaster, state *risk.AppState, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.Interval <= 0 {
		opts.Interval = time.Hour
	}
	return &Pipeline{
		forecaster: f,
		state:      state,
		opts:       opts,
		logger:     logger,
		metrics:    metrics,
	}
}

// CheckReadiness returns nil once a forecast has completed, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no forecast has completed yet")
	}
	return nil
}

// Latest returns the export of the most recent successful run.
func (p *Pipeline) Latest() (forecast.Export, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return forecast.Export{}, false
	}
	return *p.latest, true
}

// Run forecasts immediately and then every interval until the context is
// cancelled. Failed runs are retried with exponential backoff.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("forecast loop started", "interval", p.opts.Interval, "sites", len(p.opts.Sites))
	p.metrics.ForecastLoopRunning.Set(1)
	defer p.metrics.ForecastLoopRunning.Set(0)

	// Exponential backoff: start at 1s, double each retry, cap at the interval.
	backoff := time.Second
	maxBackoff := p.opts.Interval

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("forecast loop stopping", "reason", ctx.Err())
			return nil
		default:
		}

		wait := p.opts.Interval
		if _, err := p.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("forecast run failed", "error", err, "retry_in", backoff)
			wait = backoff
			backoff = retry.NextBackoff(backoff, maxBackoff)
		} else {
			backoff = time.Second
		}

		if !retry.SleepWithContext(ctx, wait) {
			p.logger.Info("forecast loop stopping", "reason", ctx.Err())
			return nil
		}
	}
}

// RunOnce performs a single forecast at the current clock time.
func (p *Pipeline) RunOnce(ctx context.Context) (*forecast.Export, error) {
	at := domain.Now()
	res, err := p.forecaster.Forecast(ctx, p.opts.Sites, at)
	if err != nil {
		return nil, fmt.Errorf("forecast: %w", err)
	}

	p.state.SetPredictions(res.Predictions(), res.GeneratedAt)

	routes := make([]risk.RouteResult, 0)
	for _, r := range p.state.Routes() {
		rr, err := p.state.EvaluateRoute(r.ID)
		if err != nil {
			p.logger.Warn("route evaluation failed", "route", r.ID, "error", err)
			continue
		}
		routes = append(routes, rr)
	}

	ex := forecast.NewExport(res, p.opts.Models, p.history(ctx, at), routes)
	if p.opts.ExportPath != "" {
		if err := writeFileAtomic(p.opts.ExportPath, ex.WriteJSON); err != nil {
			return nil, fmt.Errorf("export: %w", err)
		}
	}
	if p.opts.CSVPath != "" {
		err := writeFileAtomic(p.opts.CSVPath, func(w io.Writer) error { return forecast.WriteCSV(w, res) })
		if err != nil {
			return nil, fmt.Errorf("csv export: %w", err)
		}
	}

	if p.opts.Publisher != nil && len(res.Records) > 0 {
		if err := p.opts.Publisher.Publish(ctx, res.Records); err != nil {
			return nil, fmt.Errorf("publish forecasts: %w", err)
		}
		p.metrics.RecordsPublished.Add(float64(len(res.Records)))
	}

	p.mu.Lock()
	p.latest = &ex
	p.mu.Unlock()
	p.ready.Store(true)

	p.logger.Info("forecast published",
		"generated_at", res.GeneratedAt,
		"records", len(res.Records),
		"routes", len(routes),
		"export", p.opts.ExportPath,
	)
	return &ex, nil
}

// history collects recent events for the map layer. Failures only cost the
// map layer, so they are logged and skipped.
func (p *Pipeline) history(ctx context.Context, at time.Time) []domain.HazardEvent {
	if p.opts.History == nil {
		return nil
	}
	limits := map[domain.HazardType]int{
		domain.HazardFire:  forecast.MaxHistoricalFires,
		domain.HazardQuake: forecast.MaxHistoricalQuakes,
	}
	var out []domain.HazardEvent
	for _, h := range domain.HazardTypes {
		events, err := p.opts.History.Recent(ctx, h, at.Add(-forecast.HistoryWindow), at, limits[h])
		if err != nil {
			p.logger.Warn("historical events unavailable", "hazard", h, "error", err)
			continue
		}
		out = append(out, events...)
	}
	return out
}

// writeFileAtomic replaces path so readers never see a partial file.
func writeFileAtomic(path string, write func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
