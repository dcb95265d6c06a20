package model

import (
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/couchcryptid/riskradar/internal/dataset"
	"github.com/couchcryptid/riskradar/internal/domain"
	"github.com/couchcryptid/riskradar/internal/features"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func smallForest() ForestParams {
	return ForestParams{
		Trees:           15,
		MaxDepth:        6,
		MinSamplesSplit: 4,
		MinSamplesLeaf:  2,
		Seed:            42,
		Workers:         3,
	}
}

// separable returns rows whose label is 1 exactly when the first feature
// exceeds 0.7. Other columns are noise.
func separable(n, features int, seed uint64) ([][]float64, []int) {
	rng := rand.New(rand.NewPCG(seed, 1))
	x := make([][]float64, n)
	y := make([]int, n)
	for i := range n {
		row := make([]float64, features)
		for j := range row {
			row[j] = rng.Float64()
		}
		x[i] = row
		if row[0] > 0.7 {
			y[i] = 1
		}
	}
	return x, y
}

// quakeDataset builds a dataset over the quake schema where the first
// feature drives the label.
func quakeDataset(n int, positives bool) *dataset.Dataset {
	p := domain.DefaultParams(domain.HazardQuake)
	names := features.Schema(p)
	x, y := separable(n, len(names), 9)

	samples := make([]domain.Sample, n)
	base := time.Date(2020, 1, 6, 0, 0, 0, 0, time.UTC)
	for i := range n {
		label := y[i]
		if !positives {
			label = 0
		}
		samples[i] = domain.Sample{
			Site:      domain.Site{Name: "Tokyo", Lat: 35.68, Lon: 139.69},
			Reference: base.AddDate(0, 0, 7*i),
			Features:  x[i],
			Label:     label,
		}
	}
	train, test := dataset.StratifiedSplit(samples, 0.2, 42)
	return &dataset.Dataset{
		Params:       p,
		FeatureNames: names,
		Train:        train,
		Test:         test,
	}
}

func jsonMarshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
