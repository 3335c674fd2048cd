package features

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"lotto-engine/internal/draws"
	"lotto-engine/internal/stats"
)

// Vector layout: 45 frequency ratios, 45 trend ratios, 45 appearance
// ratios, then 10 aggregate stats.
const (
	FreqOffset  = 0
	TrendOffset = draws.NumberPool
	CoOffset    = 2 * draws.NumberPool
	StatOffset  = 3 * draws.NumberPool
	Count       = StatOffset + 10
)

// Extractor builds model input vectors from draw history. Every vector is
// derived only from draws strictly before the one it describes, so training
// rows never see their own outcome.
type Extractor struct {
	analyzer *stats.Analyzer
}

func NewExtractor(window int) *Extractor {
	return &Extractor{analyzer: stats.NewAnalyzer(window)}
}

// Extract builds the feature vector describing the draw that follows prior.
// Deterministic for a given history.
func (e *Extractor) Extract(prior []draws.Draw) []float64 {
	v := make([]float64, Count)

	freqs := e.analyzer.Frequencies(prior)
	recentLen := len(prior)
	if recentLen > e.analyzer.Window() {
		recentLen = e.analyzer.Window()
	}
	for i, f := range freqs {
		v[FreqOffset+i] = f.ExpectedRatio
		if recentLen > 0 {
			v[TrendOffset+i] = float64(f.RecentCount) / float64(recentLen)
		}
		if len(prior) > 0 {
			v[CoOffset+i] = float64(f.Appearances) / float64(len(prior))
		}
	}

	e.aggregate(prior, v[StatOffset:])
	return v
}

func (e *Extractor) aggregate(prior []draws.Draw, out []float64) {
	if len(prior) == 0 {
		// Neutral defaults when no history exists yet.
		out[0] = 23.0 // mean
		out[1] = 0    // std
		out[2] = 1    // min
		out[3] = 45   // max
		out[4] = 44   // range
		out[5] = 0.33 // low third
		out[6] = 0.33 // mid third
		out[7] = 0.34 // high third
		out[8] = 0.5  // odd ratio
		out[9] = 0.5  // even ratio
		return
	}

	var vals []float64
	var low, mid, high, odd int
	min, max := draws.NumberPool, 1
	for _, d := range prior {
		for _, n := range d.Numbers {
			vals = append(vals, float64(n))
			switch {
			case n <= 15:
				low++
			case n <= 30:
				mid++
			default:
				high++
			}
			if n%2 == 1 {
				odd++
			}
			if n < min {
				min = n
			}
			if n > max {
				max = n
			}
		}
	}

	total := float64(len(vals))
	out[0] = stat.Mean(vals, nil)
	out[1] = stat.PopStdDev(vals, nil)
	out[2] = float64(min)
	out[3] = float64(max)
	out[4] = float64(max - min)
	out[5] = float64(low) / total
	out[6] = float64(mid) / total
	out[7] = float64(high) / total
	out[8] = float64(odd) / total
	out[9] = 1 - out[8]
}

// Dataset converts an ordered history into training rows. Row i carries the
// features visible before draw i and a 45-wide multi-hot label of draw i's
// numbers.
func (e *Extractor) Dataset(history []draws.Draw) (X, Y [][]float64, err error) {
	if len(history) == 0 {
		return nil, nil, fmt.Errorf("empty draw history")
	}
	X = make([][]float64, len(history))
	Y = make([][]float64, len(history))
	for i, d := range history {
		if err := d.Validate(); err != nil {
			return nil, nil, fmt.Errorf("draw %d: %w", d.DrawNumber, err)
		}
		X[i] = e.Extract(history[:i])
		Y[i] = Labels(d.Numbers)
	}
	return X, Y, nil
}

// Labels returns the 45-wide multi-hot encoding of a drawn combination.
func Labels(numbers []int) []float64 {
	y := make([]float64, draws.NumberPool)
	for _, n := range numbers {
		y[n-1] = 1
	}
	return y
}
