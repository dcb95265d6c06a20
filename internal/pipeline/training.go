package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/riskradar/internal/dataset"
	"github.com/couchcryptid/riskradar/internal/domain"
	"github.com/couchcryptid/riskradar/internal/model"
)

// DatasetBuilder produces the labeled train/test table for one hazard.
type DatasetBuilder interface {
	Build(ctx context.Context, sites []domain.Site, p domain.HazardParams) (*dataset.Dataset, error)
}

// ModelTrainer fits an artifact from a dataset.
type ModelTrainer interface {
	Train(ctx context.Context, ds *dataset.Dataset) (*model.Artifact, error)
}

// ArtifactSaver persists trained artifacts.
type ArtifactSaver interface {
	Save(a *model.Artifact) error
}

// Training builds a dataset, trains, and saves one artifact per hazard.
type Training struct {
	datasets DatasetBuilder
	trainer  ModelTrainer
	saver    ArtifactSaver
	logger   *slog.Logger
}

// NewTraining creates a training pipeline.
func NewTraining(d DatasetBuilder, t ModelTrainer, s ArtifactSaver, logger *slog.Logger) *Training {
	return &Training{datasets: d, trainer: t, saver: s, logger: logger}
}

// Run trains every hazard in params in order and stops at the first failure.
// Low-confidence models are still saved; their metrics carry the warning.
func (t *Training) Run(ctx context.Context, sites []domain.Site, params []domain.HazardParams) ([]*model.Artifact, error) {
	out := make([]*model.Artifact, 0, len(params))
	for _, p := range params {
		ds, err := t.datasets.Build(ctx, sites, p)
		if err != nil {
			return nil, fmt.Errorf("%s dataset: %w", p.Hazard, err)
		}
		a, err := t.trainer.Train(ctx, ds)
		if err != nil {
			return nil, fmt.Errorf("%s training: %w", p.Hazard, err)
		}
		if err := t.saver.Save(a); err != nil {
			return nil, fmt.Errorf("%s save: %w", p.Hazard, err)
		}
		if a.Metrics.LowConfidence {
			t.logger.Warn("saved low-confidence model", "hazard", a.Hazard, "version", a.Version, "warnings", a.Metrics.Warnings)
		} else {
			t.logger.Info("saved model", "hazard", a.Hazard, "version", a.Version)
		}
		out = append(out, a)
	}
	return out, nil
}
