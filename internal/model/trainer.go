package model

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/riskradar/internal/dataset"
	"github.com/couchcryptid/riskradar/internal/domain"
	"github.com/couchcryptid/riskradar/internal/observability"
)

// CalibrationRatio is the share of the train partition held out to tune a
// recall-targeted threshold.
const CalibrationRatio = 0.25

// TrainerOptions configure model fitting.
type TrainerOptions struct {
	Forest        ForestParams
	MinPositives  int
	ThresholdGrid []float64
}

// Trainer fits and evaluates one model per hazard type.
type Trainer struct {
	opts    TrainerOptions
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewTrainer creates a trainer.
func NewTrainer(opts TrainerOptions, logger *slog.Logger, metrics *observability.Metrics) *Trainer {
	if len(opts.ThresholdGrid) == 0 {
		opts.ThresholdGrid = DefaultThresholdGrid()
	}
	return &Trainer{opts: opts, logger: logger, metrics: metrics}
}

// Train fits a forest on ds.Train with the hazard's positive class weight,
// scores ds.Test, picks the decision threshold, and returns a new artifact.
// Too few positives flags the metrics as low confidence instead of failing.
func (t *Trainer) Train(ctx context.Context, ds *dataset.Dataset) (*Artifact, error) {
	p := ds.Params
	start := time.Now()

	xTrain, yTrain, err := matrix(ds.Train, ds.FeatureNames)
	if err != nil {
		return nil, err
	}
	xTest, yTest, err := matrix(ds.Test, ds.FeatureNames)
	if err != nil {
		return nil, err
	}

	fp := t.opts.Forest
	fp.PositiveWeight = p.ClassWeight

	t.logger.Info("training model",
		"hazard", p.Hazard,
		"train_samples", len(xTrain),
		"test_samples", len(xTest),
		"trees", fp.Trees,
		"max_depth", fp.MaxDepth,
		"positive_weight", fp.PositiveWeight,
	)

	forest, err := Fit(ctx, xTrain, yTrain, fp)
	if err != nil {
		return nil, fmt.Errorf("train %s: %w", p.Hazard, err)
	}

	probs := make([]float64, len(xTest))
	for i, row := range xTest {
		if probs[i], err = forest.PredictProba(row); err != nil {
			return nil, fmt.Errorf("score %s test set: %w", p.Hazard, err)
		}
	}

	threshold, calibration := p.Threshold, 0
	if p.TargetRecall > 0 {
		if threshold, calibration, err = t.calibrate(ctx, ds, fp); err != nil {
			return nil, err
		}
	}

	m := Evaluate(probs, yTest, threshold)
	m.CalibrationSamples = calibration
	m.TrainSamples = len(yTrain)
	for _, y := range yTrain {
		m.TrainPositives += y
	}
	if m.TrainPositives < t.opts.MinPositives {
		m.LowConfidence = true
		m.Warnings = append(m.Warnings, fmt.Sprintf("%s: %d training positives, below minimum %d",
			domain.ErrInsufficientPositiveSamples, m.TrainPositives, t.opts.MinPositives))
	}
	if m.TestPositives == 0 {
		m.LowConfidence = true
		m.Warnings = append(m.Warnings, fmt.Sprintf("%s: test partition has no positives, recall and PR-AUC are undefined",
			domain.ErrInsufficientPositiveSamples))
	}

	elapsed := time.Since(start)
	t.metrics.TrainingDuration.WithLabelValues(string(p.Hazard)).Observe(elapsed.Seconds())
	t.recordScores(p.Hazard, m)

	t.logger.Info("model trained",
		"hazard", p.Hazard,
		"threshold", threshold,
		"precision", m.Precision,
		"recall", m.Recall,
		"f1", m.F1,
		"pr_auc", m.PRAUC,
		"accuracy", m.Accuracy,
		"baseline_accuracy", m.BaselineAccuracy,
		"duration", elapsed,
	)
	for _, w := range m.Warnings {
		t.logger.Warn("low confidence model", "hazard", p.Hazard, "warning", w)
	}

	return &Artifact{
		FormatVersion: FormatVersion,
		Version:       uuid.NewString(),
		Hazard:        p.Hazard,
		CreatedAt:     domain.Now(),
		Params:        p,
		FeatureNames:  append([]string(nil), ds.FeatureNames...),
		Threshold:     threshold,
		Metrics:       m,
		Importances:   rankImportances(ds.FeatureNames, forest.Importances),
		TrainingRange: DateRange{Start: p.Start, End: p.End},
		Dataset:       ds.Report,
		Forest:        forest,
	}, nil
}

// calibrate picks the recall-targeted threshold on a stratified slice of the
// train partition, scored by a forest fitted without it, so the test metrics
// stay an unbiased estimate. It falls back to the configured threshold when
// the slice has no positives or no candidate reaches the target.
func (t *Trainer) calibrate(ctx context.Context, ds *dataset.Dataset, fp ForestParams) (float64, int, error) {
	p := ds.Params
	fit, held := dataset.StratifiedSplit(ds.Train, CalibrationRatio, fp.Seed+1)
	xFit, yFit, err := matrix(fit, ds.FeatureNames)
	if err != nil {
		return 0, 0, err
	}
	xHeld, yHeld, err := matrix(held, ds.FeatureNames)
	if err != nil {
		return 0, 0, err
	}
	if len(xFit) == 0 || len(xHeld) == 0 {
		t.logger.Warn("train partition too small to calibrate, keeping configured threshold", "hazard", p.Hazard)
		return p.Threshold, 0, nil
	}

	forest, err := Fit(ctx, xFit, yFit, fp)
	if err != nil {
		return 0, 0, fmt.Errorf("calibrate %s: %w", p.Hazard, err)
	}
	probs := make([]float64, len(xHeld))
	for i, row := range xHeld {
		if probs[i], err = forest.PredictProba(row); err != nil {
			return 0, 0, fmt.Errorf("score %s calibration set: %w", p.Hazard, err)
		}
	}

	th, ok := SelectThreshold(probs, yHeld, p.TargetRecall, t.opts.ThresholdGrid)
	if !ok {
		t.logger.Warn("no threshold reaches target recall, keeping configured threshold",
			"hazard", p.Hazard, "target_recall", p.TargetRecall, "threshold", p.Threshold)
		return p.Threshold, len(held), nil
	}
	return th, len(held), nil
}

func (t *Trainer) recordScores(h domain.HazardType, m Metrics) {
	scores := map[string]float64{
		"precision": m.Precision,
		"recall":    m.Recall,
		"f1":        m.F1,
		"pr_auc":    m.PRAUC,
		"accuracy":  m.Accuracy,
	}
	if m.ROCAUC != nil {
		scores["roc_auc"] = *m.ROCAUC
	}
	for name, v := range scores {
		t.metrics.ModelScore.WithLabelValues(string(h), name).Set(v)
	}
}

func matrix(samples []domain.Sample, names []string) ([][]float64, []int, error) {
	x := make([][]float64, len(samples))
	y := make([]int, len(samples))
	for i, s := range samples {
		if len(s.Features) != len(names) {
			return nil, nil, fmt.Errorf("%w: sample %s@%s has %d features, schema has %d",
				domain.ErrFeatureSchemaMismatch, s.Site.Name, s.Reference.Format(time.DateOnly), len(s.Features), len(names))
		}
		x[i] = s.Features
		y[i] = s.Label
	}
	return x, y, nil
}

// FeatureImportance pairs a feature name with its normalized impurity decrease.
type FeatureImportance struct {
	Feature    string  `json:"feature" yaml:"feature"`
	Importance float64 `json:"importance" yaml:"importance"`
}

func rankImportances(names []string, values []float64) []FeatureImportance {
	out := make([]FeatureImportance, len(names))
	for i, n := range names {
		out[i] = FeatureImportance{Feature: n, Importance: values[i]}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].Importance > out[b].Importance })
	return out
}
