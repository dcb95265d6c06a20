package model

import (
	"fmt"
	"math/rand/v2"
	"sort"
)

const leaf = -1

// Tree is a fitted binary classification tree stored as parallel arrays.
// Node 0 is the root. Leaves have Feature == -1 and carry the weighted
// positive-class fraction in Value.
type Tree struct {
	Feature   []int     `json:"feature"`
	Threshold []float64 `json:"threshold"`
	Left      []int     `json:"left"`
	Right     []int     `json:"right"`
	Value     []float64 `json:"value"`
}

// Predict walks the tree and returns the leaf's positive-class probability.
func (t *Tree) Predict(x []float64) float64 {
	n := 0
	for t.Feature[n] != leaf {
		if x[t.Feature[n]] <= t.Threshold[n] {
			n = t.Left[n]
		} else {
			n = t.Right[n]
		}
	}
	return t.Value[n]
}

// validate checks the node arrays so that Predict can never index out of
// range or loop. Children are always stored after their parent.
func (t *Tree) validate(numFeatures int) error {
	n := len(t.Feature)
	if n == 0 {
		return fmt.Errorf("tree has no nodes")
	}
	if len(t.Threshold) != n || len(t.Left) != n || len(t.Right) != n || len(t.Value) != n {
		return fmt.Errorf("tree node arrays differ in length")
	}
	for i := range n {
		if v := t.Value[i]; !(v >= 0 && v <= 1) {
			return fmt.Errorf("node %d: value %v outside [0,1]", i, v)
		}
		if t.Feature[i] == leaf {
			continue
		}
		if t.Feature[i] < 0 || t.Feature[i] >= numFeatures {
			return fmt.Errorf("node %d: feature %d out of range", i, t.Feature[i])
		}
		if t.Left[i] <= i || t.Left[i] >= n || t.Right[i] <= i || t.Right[i] >= n {
			return fmt.Errorf("node %d: invalid children %d/%d", i, t.Left[i], t.Right[i])
		}
	}
	return nil
}

func (t *Tree) addNode(value float64) int {
	t.Feature = append(t.Feature, leaf)
	t.Threshold = append(t.Threshold, 0)
	t.Left = append(t.Left, leaf)
	t.Right = append(t.Right, leaf)
	t.Value = append(t.Value, value)
	return len(t.Feature) - 1
}

// treeGrower holds the training view for one tree: the shared feature matrix,
// labels, and this tree's bootstrap multiplicities and sample weights.
type treeGrower struct {
	x           [][]float64
	y           []int
	counts      []int
	weights     []float64
	params      ForestParams
	maxFeatures int
	rng         *rand.Rand

	tree        Tree
	importances []float64
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

func gini(wPos, wTotal float64) float64 {
	if wTotal <= 0 {
		return 0
	}
	p := wPos / wTotal
	return 2 * p * (1 - p)
}

func (g *treeGrower) totals(idx []int) (wPos, wTotal float64, n int) {
	for _, i := range idx {
		wTotal += g.weights[i]
		if g.y[i] == 1 {
			wPos += g.weights[i]
		}
		n += g.counts[i]
	}
	return wPos, wTotal, n
}

// grow builds the subtree for idx and returns its node index.
func (g *treeGrower) grow(idx []int, depth int) int {
	wPos, wTotal, n := g.totals(idx)
	value := 0.0
	if wTotal > 0 {
		value = wPos / wTotal
	}
	node := g.tree.addNode(value)

	if depth >= g.params.MaxDepth || n < g.params.MinSamplesSplit || wPos == 0 || wPos == wTotal {
		return node
	}

	best, ok := g.bestSplit(idx, wPos, wTotal)
	if !ok {
		return node
	}

	g.importances[best.feature] += best.gain
	g.tree.Feature[node] = best.feature
	g.tree.Threshold[node] = best.threshold
	left := g.grow(best.left, depth+1)
	right := g.grow(best.right, depth+1)
	g.tree.Left[node] = left
	g.tree.Right[node] = right
	return node
}

func (g *treeGrower) bestSplit(idx []int, wPos, wTotal float64) (split, bool) {
	parent := wTotal * gini(wPos, wTotal)
	best := split{gain: 1e-12}
	found := false

	_, _, nTotal := g.totals(idx)
	nFeatures := len(g.x[0])
	candidates := g.rng.Perm(nFeatures)[:g.maxFeatures]
	sorted := make([]int, len(idx))

	for _, f := range candidates {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool { return g.x[sorted[a]][f] < g.x[sorted[b]][f] })

		var wLeft, wPosLeft float64
		nLeft := 0
		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			wLeft += g.weights[i]
			if g.y[i] == 1 {
				wPosLeft += g.weights[i]
			}
			nLeft += g.counts[i]

			lo, hi := g.x[i][f], g.x[sorted[k+1]][f]
			if lo == hi {
				continue
			}
			if nLeft < g.params.MinSamplesLeaf || nTotal-nLeft < g.params.MinSamplesLeaf {
				continue
			}
			wRight := wTotal - wLeft
			wPosRight := wPos - wPosLeft
			gain := parent - wLeft*gini(wPosLeft, wLeft) - wRight*gini(wPosRight, wRight)
			if gain > best.gain {
				best.gain = gain
				best.feature = f
				best.threshold = lo + (hi-lo)/2
				if best.threshold >= hi {
					best.threshold = lo
				}
				found = true
			}
		}
	}
	if !found {
		return split{}, false
	}

	for _, i := range idx {
		if g.x[i][best.feature] <= best.threshold {
			best.left = append(best.left, i)
		} else {
			best.right = append(best.right, i)
		}
	}
	return best, true
}
