package model

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Confusion counts classifier outcomes at a fixed threshold.
type Confusion struct {
	TP int `json:"tp" yaml:"tp"`
	FP int `json:"fp" yaml:"fp"`
	TN int `json:"tn" yaml:"tn"`
	FN int `json:"fn" yaml:"fn"`
}

// Metrics is the evaluation snapshot stored with every artifact.
type Metrics struct {
	Threshold        float64   `json:"threshold" yaml:"threshold"`
	Precision        float64   `json:"precision" yaml:"precision"`
	Recall           float64   `json:"recall" yaml:"recall"`
	F1               float64   `json:"f1" yaml:"f1"`
	PRAUC            float64   `json:"pr_auc" yaml:"pr_auc"`
	ROCAUC           *float64  `json:"roc_auc" yaml:"roc_auc"` // nil when the test set has a single class
	Accuracy         float64   `json:"accuracy" yaml:"accuracy"`
	BaselineAccuracy float64   `json:"baseline_accuracy" yaml:"baseline_accuracy"`
	Confusion        Confusion `json:"confusion" yaml:"confusion"`

	TrainSamples   int `json:"train_samples" yaml:"train_samples"`
	TrainPositives int `json:"train_positives" yaml:"train_positives"`
	TestSamples    int `json:"test_samples" yaml:"test_samples"`
	TestPositives  int `json:"test_positives" yaml:"test_positives"`
	// CalibrationSamples is the train slice the threshold was tuned on, 0 when the configured threshold was used.
	CalibrationSamples int `json:"calibration_samples,omitempty" yaml:"calibration_samples,omitempty"`

	LowConfidence bool     `json:"low_confidence" yaml:"low_confidence"`
	Warnings      []string `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// Evaluate scores probabilities against labels at threshold. A probability
// equal to the threshold counts as a positive prediction.
func Evaluate(probs []float64, labels []int, threshold float64) Metrics {
	m := Metrics{Threshold: threshold, TestSamples: len(labels)}
	for i, p := range probs {
		predicted := p >= threshold
		switch {
		case predicted && labels[i] == 1:
			m.Confusion.TP++
		case predicted:
			m.Confusion.FP++
		case labels[i] == 1:
			m.Confusion.FN++
		default:
			m.Confusion.TN++
		}
	}
	c := m.Confusion
	m.TestPositives = c.TP + c.FN

	m.Precision = ratio(c.TP, c.TP+c.FP)
	m.Recall = ratio(c.TP, c.TP+c.FN)
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	m.Accuracy = ratio(c.TP+c.TN, len(labels))
	if len(labels) > 0 {
		m.BaselineAccuracy = math.Max(ratio(m.TestPositives, len(labels)), ratio(len(labels)-m.TestPositives, len(labels)))
	}
	m.PRAUC = PRAUC(probs, labels)
	if auc, ok := ROCAUC(probs, labels); ok {
		m.ROCAUC = &auc
	}
	return m
}

// rocCurve returns the true and false positive rates at every distinct
// score, from the strictest cutoff down, plus the class counts.
func rocCurve(probs []float64, labels []int) (tpr, fpr []float64, pos, neg int) {
	y := append([]float64(nil), probs...)
	classes := make([]bool, len(labels))
	for i, l := range labels {
		classes[i] = l == 1
		if classes[i] {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return nil, nil, pos, neg
	}
	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ = stat.ROC(nil, y, classes, nil)
	return tpr, fpr, pos, neg
}

// PRAUC is the trapezoidal area under the precision-recall curve, anchored
// at (recall 0, precision 1). It returns 0 when there are no positives.
func PRAUC(probs []float64, labels []int) float64 {
	tpr, fpr, pos, neg := rocCurve(probs, labels)
	switch {
	case pos == 0:
		return 0
	case neg == 0:
		return 1
	}

	recall := make([]float64, len(tpr))
	precision := make([]float64, len(tpr))
	for i := range tpr {
		tp, fp := tpr[i]*float64(pos), fpr[i]*float64(neg)
		recall[i] = tpr[i]
		precision[i] = 1
		if tp+fp > 0 {
			precision[i] = tp / (tp + fp)
		}
	}
	return integrate.Trapezoidal(recall, precision)
}

// ROCAUC is the trapezoidal area under the ROC curve. Tied scores form a
// single curve point. ok is false if either class is absent.
func ROCAUC(probs []float64, labels []int) (auc float64, ok bool) {
	tpr, fpr, pos, neg := rocCurve(probs, labels)
	if pos == 0 || neg == 0 {
		return 0, false
	}
	return integrate.Trapezoidal(fpr, tpr), true
}

// SelectThreshold returns the highest candidate whose recall reaches target.
// It reports false when no candidate does or when there are no positives.
func SelectThreshold(probs []float64, labels []int, target float64, candidates []float64) (float64, bool) {
	sorted := append([]float64(nil), candidates...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	for _, th := range sorted {
		m := Evaluate(probs, labels, th)
		if m.TestPositives == 0 {
			return 0, false
		}
		if m.Recall >= target {
			return th, true
		}
	}
	return 0, false
}

// DefaultThresholdGrid is 0.05, 0.10, ..., 0.50.
func DefaultThresholdGrid() []float64 {
	grid := make([]float64, 0, 10)
	for i := 1; i <= 10; i++ {
		grid = append(grid, float64(i)*0.05)
	}
	return grid
}
