package dataset

import (
	"math"
	"math/rand/v2"

	"github.com/couchcryptid/riskradar/internal/domain"
)

// StratifiedSplit partitions samples into train and test so that each label
// contributes round(n_label * testRatio) samples to test. The same seed and
// input always yield the same partitions. Both partitions keep input order.
func StratifiedSplit(samples []domain.Sample, testRatio float64, seed uint64) (train, test []domain.Sample) {
	rng := rand.New(rand.NewPCG(seed, seed))

	byLabel := map[int][]int{}
	for i, s := range samples {
		byLabel[s.Label] = append(byLabel[s.Label], i)
	}

	inTest := make([]bool, len(samples))
	// Labels are visited in a fixed order so the RNG stream is reproducible.
	for _, label := range []int{0, 1} {
		idx := byLabel[label]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		n := int(math.Round(float64(len(idx)) * testRatio))
		for _, i := range idx[:n] {
			inTest[i] = true
		}
	}

	for i, s := range samples {
		if inTest[i] {
			test = append(test, s)
		} else {
			train = append(train, s)
		}
	}
	return train, test
}

// PositiveRate returns the share of samples labeled 1.
func PositiveRate(samples []domain.Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	return float64(countPositives(samples)) / float64(len(samples))
}
