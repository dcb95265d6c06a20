package forecast

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/riskradar/internal/domain"
	"github.com/couchcryptid/riskradar/internal/features"
	"github.com/couchcryptid/riskradar/internal/model"
)

var forecastTime = time.Date(2025, 8, 1, 6, 0, 0, 0, time.UTC)

var (
	sacramento = domain.Site{Name: "Sacramento", Lat: 38.58, Lon: -121.49}
	reno       = domain.Site{Name: "Reno", Lat: 39.53, Lon: -119.81}
	boise      = domain.Site{Name: "Boise", Lat: 43.62, Lon: -116.21}
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubFeatures fills every feature with the site's signal value, then
// applies per-name overrides.
type stubFeatures struct {
	signal      map[string]float64
	overrides   map[string]float64
	unavailable map[string]bool
	names       map[domain.HazardType][]string
}

func (s *stubFeatures) Build(_ context.Context, site domain.Site, _ time.Time, p domain.HazardParams) (features.Vector, error) {
	if s.unavailable[site.Name] {
		return features.Vector{}, fmt.Errorf("%w: no history for %s", domain.ErrDataUnavailable, site.Name)
	}
	names := features.Schema(p)
	if override, ok := s.names[p.Hazard]; ok {
		names = override
	}
	values := make([]float64, len(names))
	for i, n := range names {
		values[i] = s.signal[site.Name]
		if v, ok := s.overrides[n]; ok {
			values[i] = v
		}
	}
	return features.Vector{Names: names, Values: values}, nil
}

// trainedArtifact fits a small forest where every column carries the same
// signal in [0, 10] and the label is signal > 5.
func trainedArtifact(t *testing.T, h domain.HazardType) *model.Artifact {
	t.Helper()
	p := domain.DefaultParams(h)
	names := features.Schema(p)

	rng := rand.New(rand.NewPCG(3, uint64(len(names))))
	x := make([][]float64, 200)
	y := make([]int, 200)
	for i := range x {
		v := rng.Float64() * 10
		row := make([]float64, len(names))
		for j := range row {
			row[j] = v
		}
		x[i] = row
		if v > 5 {
			y[i] = 1
		}
	}

	forest, err := model.Fit(context.Background(), x, y, model.ForestParams{
		Trees:           15,
		MaxDepth:        4,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            11,
		Workers:         2,
	})
	require.NoError(t, err)

	return &model.Artifact{
		FormatVersion: model.FormatVersion,
		Version:       string(h) + "-test",
		Hazard:        h,
		CreatedAt:     forecastTime.Add(-24 * time.Hour),
		Params:        p,
		FeatureNames:  names,
		Threshold:     p.Threshold,
		Metrics:       model.Metrics{Threshold: p.Threshold, Recall: 0.8, Precision: 0.5},
		TrainingRange: model.DateRange{Start: p.Start, End: p.End},
		Forest:        forest,
	}
}

func bothArtifacts(t *testing.T) []*model.Artifact {
	return []*model.Artifact{trainedArtifact(t, domain.HazardFire), trainedArtifact(t, domain.HazardQuake)}
}
