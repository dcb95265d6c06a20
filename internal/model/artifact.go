package model

import (
	"fmt"
	"slices"
	"time"

	"github.com/couchcryptid/riskradar/internal/dataset"
	"github.com/couchcryptid/riskradar/internal/domain"
	"github.com/couchcryptid/riskradar/internal/features"
)

// FormatVersion is bumped whenever the serialized artifact layout changes.
const FormatVersion = 1

// DateRange is the training-data window, end exclusive.
type DateRange struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Artifact binds a fitted classifier to everything needed to use it safely:
// the feature schema, the parameters the features were built with, the
// decision threshold, and the held-out metrics. Artifacts are never mutated
// after creation; retraining produces a new Version.
type Artifact struct {
	FormatVersion int                 `json:"format_version"`
	Version       string              `json:"version"`
	Hazard        domain.HazardType   `json:"hazard"`
	CreatedAt     time.Time           `json:"created_at"`
	Params        domain.HazardParams `json:"params"`
	FeatureNames  []string            `json:"feature_names"`
	Threshold     float64             `json:"threshold"`
	Metrics       Metrics             `json:"metrics"`
	Importances   []FeatureImportance `json:"feature_importance"`
	TrainingRange DateRange           `json:"training_range"`
	Dataset       dataset.Report      `json:"dataset"`
	Forest        *Forest             `json:"forest"`
}

// Validate checks internal consistency: the stored feature names must be
// exactly what the feature builder produces for the stored params, and the
// classifier must expect that many inputs.
func (a *Artifact) Validate() error {
	if a.FormatVersion != FormatVersion {
		return fmt.Errorf("artifact %s: unsupported format version %d", a.Version, a.FormatVersion)
	}
	if a.Forest == nil || len(a.Forest.Trees) == 0 {
		return fmt.Errorf("artifact %s: no classifier state", a.Version)
	}
	if a.Params.Hazard != a.Hazard {
		return fmt.Errorf("artifact %s: params are for %s, artifact is %s", a.Version, a.Params.Hazard, a.Hazard)
	}
	if want := features.Schema(a.Params); !slices.Equal(want, a.FeatureNames) {
		return fmt.Errorf("%w: artifact %s records %v, builder produces %v", domain.ErrFeatureSchemaMismatch, a.Version, a.FeatureNames, want)
	}
	if a.Forest.NumFeatures != len(a.FeatureNames) {
		return fmt.Errorf("%w: artifact %s classifier expects %d features, schema has %d",
			domain.ErrFeatureSchemaMismatch, a.Version, a.Forest.NumFeatures, len(a.FeatureNames))
	}
	for i := range a.Forest.Trees {
		if err := a.Forest.Trees[i].validate(a.Forest.NumFeatures); err != nil {
			return fmt.Errorf("artifact %s: tree %d: %w", a.Version, i, err)
		}
	}
	return nil
}

// Predict scores a feature vector. The vector's names must match the
// recorded schema exactly, in order.
func (a *Artifact) Predict(v features.Vector) (float64, error) {
	if !slices.Equal(v.Names, a.FeatureNames) {
		return 0, fmt.Errorf("%w: %s model expects %v, got %v", domain.ErrFeatureSchemaMismatch, a.Hazard, a.FeatureNames, v.Names)
	}
	return a.Forest.PredictProba(v.Values)
}

// Classify applies the artifact's threshold.
func (a *Artifact) Classify(p float64) domain.Classification {
	return domain.Classify(p, a.Threshold)
}
