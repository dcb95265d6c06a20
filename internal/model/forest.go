package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/riskradar/internal/domain"
)

// ForestParams are the hyperparameters of the random forest.
type ForestParams struct {
	Trees           int     `json:"trees" yaml:"trees"`
	MaxDepth        int     `json:"max_depth" yaml:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split" yaml:"min_samples_split"`
	MinSamplesLeaf  int     `json:"min_samples_leaf" yaml:"min_samples_leaf"`
	MaxFeatures     int     `json:"max_features,omitempty" yaml:"max_features,omitempty"` // 0 means sqrt(n_features)
	PositiveWeight  float64 `json:"positive_weight" yaml:"positive_weight"`
	Seed            uint64  `json:"seed" yaml:"seed"`
	Workers         int     `json:"-" yaml:"-"`
}

// DefaultForestParams returns the reference hyperparameters.
func DefaultForestParams() ForestParams {
	return ForestParams{
		Trees:           200,
		MaxDepth:        15,
		MinSamplesSplit: 5,
		MinSamplesLeaf:  2,
		PositiveWeight:  1,
		Seed:            42,
		Workers:         4,
	}
}

// Forest is a fitted random forest binary classifier. It is immutable after
// Fit and safe for concurrent prediction.
type Forest struct {
	NumFeatures int          `json:"num_features"`
	Params      ForestParams `json:"params"`
	Trees       []Tree       `json:"trees"`
	Importances []float64    `json:"importances"`
}

// Fit trains a forest on rows x with binary labels y. Negative samples have
// weight 1 and positive samples params.PositiveWeight. Each tree sees a
// bootstrap resample and considers MaxFeatures random features per split.
// Trees are seeded by (Seed, tree index) so results do not depend on scheduling.
func Fit(ctx context.Context, x [][]float64, y []int, params ForestParams) (*Forest, error) {
	if len(x) == 0 {
		return nil, errors.New("fit forest: no training samples")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("fit forest: %d rows but %d labels", len(x), len(y))
	}
	nFeatures := len(x[0])
	if nFeatures == 0 {
		return nil, errors.New("fit forest: no features")
	}
	for i, row := range x {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", domain.ErrFeatureSchemaMismatch, i, len(row), nFeatures)
		}
		if y[i] != 0 && y[i] != 1 {
			return nil, fmt.Errorf("fit forest: label %d at row %d is not binary", y[i], i)
		}
	}
	if params.Trees <= 0 || params.MaxDepth <= 0 {
		return nil, errors.New("fit forest: trees and max depth must be positive")
	}
	if params.PositiveWeight <= 0 {
		params.PositiveWeight = 1
	}
	if params.MinSamplesSplit < 2 {
		params.MinSamplesSplit = 2
	}
	if params.MinSamplesLeaf < 1 {
		params.MinSamplesLeaf = 1
	}

	maxFeatures := params.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Max(1, math.Floor(math.Sqrt(float64(nFeatures)))))
	}
	maxFeatures = min(maxFeatures, nFeatures)

	f := &Forest{
		NumFeatures: nFeatures,
		Params:      params,
		Trees:       make([]Tree, params.Trees),
	}
	perTree := make([][]float64, params.Trees)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(params.Workers, 1))
	for t := range params.Trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tree, imp := growTree(x, y, params, maxFeatures, uint64(t))
			f.Trees[t] = tree
			perTree[t] = imp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}

	f.Importances = make([]float64, nFeatures)
	for _, imp := range perTree {
		for i, v := range imp {
			f.Importances[i] += v
		}
	}
	normalize(f.Importances)
	return f, nil
}

func growTree(x [][]float64, y []int, params ForestParams, maxFeatures int, stream uint64) (Tree, []float64) {
	rng := rand.New(rand.NewPCG(params.Seed, stream))
	n := len(x)

	counts := make([]int, n)
	for range n {
		counts[rng.IntN(n)]++
	}
	weights := make([]float64, n)
	idx := make([]int, 0, n)
	for i, c := range counts {
		if c == 0 {
			continue
		}
		w := 1.0
		if y[i] == 1 {
			w = params.PositiveWeight
		}
		weights[i] = float64(c) * w
		idx = append(idx, i)
	}

	g := &treeGrower{
		x:           x,
		y:           y,
		counts:      counts,
		weights:     weights,
		params:      params,
		maxFeatures: maxFeatures,
		rng:         rng,
		importances: make([]float64, len(x[0])),
	}
	g.grow(idx, 0)
	normalize(g.importances)
	return g.tree, g.importances
}

// PredictProba returns the mean positive-class probability across trees.
func (f *Forest) PredictProba(x []float64) (float64, error) {
	if len(x) != f.NumFeatures {
		return 0, fmt.Errorf("%w: got %d features, model expects %d", domain.ErrFeatureSchemaMismatch, len(x), f.NumFeatures)
	}
	if len(f.Trees) == 0 {
		return 0, errors.New("forest has no trees")
	}
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].Predict(x)
	}
	return sum / float64(len(f.Trees)), nil
}

func normalize(v []float64) {
	var total float64
	for _, x := range v {
		total += x
	}
	if total == 0 {
		return
	}
	for i := range v {
		v[i] /= total
	}
}
