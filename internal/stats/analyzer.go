package stats

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"lotto-engine/internal/draws"
)

// Trend classification for a number over the recent window.
type Trend string

const (
	TrendHot    Trend = "HOT"
	TrendCold   Trend = "COLD"
	TrendNormal Trend = "NORMAL"
)

const (
	hotThreshold  = 4
	coldThreshold = 1
)

// NumberStats aggregates full-history and recent-window behavior of one number.
type NumberStats struct {
	Number        int     `json:"number"`
	Appearances   int     `json:"appearances"`
	Percent       float64 `json:"percent"`
	GapSinceLast  int     `json:"gap_since_last"`
	RecentCount   int     `json:"recent_count"`
	Trend         Trend   `json:"trend"`
	ExpectedRatio float64 `json:"expected_ratio"`
}

// Analyzer computes per-number statistics over a fixed draw history.
// The window is the number of most recent draws used for trend classification.
type Analyzer struct {
	window int
}

func NewAnalyzer(window int) *Analyzer {
	if window <= 0 {
		window = 20
	}
	return &Analyzer{window: window}
}

func (a *Analyzer) Window() int { return a.window }

// Frequencies returns stats for every number 1..45, indexed by number-1.
// History must be ordered oldest first.
func (a *Analyzer) Frequencies(history []draws.Draw) []NumberStats {
	out := make([]NumberStats, draws.NumberPool)
	for i := range out {
		out[i].Number = i + 1
		out[i].Trend = TrendNormal
	}
	if len(history) == 0 {
		return out
	}

	lastSeen := make([]int, draws.NumberPool)
	for i := range lastSeen {
		lastSeen[i] = -1
	}
	for idx, d := range history {
		for _, n := range d.Numbers {
			out[n-1].Appearances++
			lastSeen[n-1] = idx
		}
	}

	// Each draw contributes 6 of 45 numbers, so the per-draw expectation
	// for any single number is 6/45.
	expected := float64(len(history)) * float64(draws.PickCount) / float64(draws.NumberPool)
	recent := a.recentWindow(history)
	recentCounts := countWindow(recent)

	for i := range out {
		out[i].Percent = 100 * float64(out[i].Appearances) / float64(len(history))
		if lastSeen[i] >= 0 {
			out[i].GapSinceLast = len(history) - 1 - lastSeen[i]
		} else {
			out[i].GapSinceLast = len(history)
		}
		if expected > 0 {
			out[i].ExpectedRatio = float64(out[i].Appearances) / expected
		}
		out[i].RecentCount = recentCounts[i]
		out[i].Trend = classify(recentCounts[i])
	}
	return out
}

// TrendCounts returns how often each number appeared in the recent window.
func (a *Analyzer) TrendCounts(history []draws.Draw) []int {
	return countWindow(a.recentWindow(history))
}

// HotNumbers returns numbers classified HOT in the recent window, ascending.
func (a *Analyzer) HotNumbers(history []draws.Draw) []int {
	return a.filterTrend(history, TrendHot)
}

// ColdNumbers returns numbers classified COLD in the recent window, ascending.
func (a *Analyzer) ColdNumbers(history []draws.Draw) []int {
	return a.filterTrend(history, TrendCold)
}

func (a *Analyzer) filterTrend(history []draws.Draw, want Trend) []int {
	counts := countWindow(a.recentWindow(history))
	var nums []int
	for i, c := range counts {
		if classify(c) == want {
			nums = append(nums, i+1)
		}
	}
	return nums
}

func (a *Analyzer) recentWindow(history []draws.Draw) []draws.Draw {
	if len(history) <= a.window {
		return history
	}
	return history[len(history)-a.window:]
}

func countWindow(window []draws.Draw) []int {
	counts := make([]int, draws.NumberPool)
	for _, d := range window {
		for _, n := range d.Numbers {
			counts[n-1]++
		}
	}
	return counts
}

func classify(recentCount int) Trend {
	switch {
	case recentCount >= hotThreshold:
		return TrendHot
	case recentCount <= coldThreshold:
		return TrendCold
	default:
		return TrendNormal
	}
}

// AnalyzeCombination attaches the explanation fields served alongside a
// recommendation.
func (a *Analyzer) AnalyzeCombination(numbers []int, history []draws.Draw) draws.Analysis {
	counts := countWindow(a.recentWindow(history))

	var an draws.Analysis
	odd := 0
	prevConsec := false
	sorted := append([]int(nil), numbers...)
	sort.Ints(sorted)
	for i, n := range sorted {
		an.Sum += n
		if n%2 == 1 {
			odd++
		}
		switch classify(counts[n-1]) {
		case TrendHot:
			an.HotCount++
		case TrendCold:
			an.ColdCount++
		}
		if i > 0 && sorted[i]-sorted[i-1] == 1 {
			if !prevConsec {
				an.ConsecutiveCount++
			}
			prevConsec = true
		} else {
			prevConsec = false
		}
		switch {
		case n <= 15:
			an.RangeDist[0]++
		case n <= 30:
			an.RangeDist[1]++
		default:
			an.RangeDist[2]++
		}
	}
	an.OddEvenRatio = float64(odd) / float64(len(sorted))
	return an
}

// SummaryFeatures computes mean and population standard deviation of every
// drawn number across the history. Empty history yields the theoretical
// mean of the 1..45 pool.
func SummaryFeatures(history []draws.Draw) (mean, stddev float64) {
	if len(history) == 0 {
		return 23.0, 0
	}
	var vals []float64
	for _, d := range history {
		for _, n := range d.Numbers {
			vals = append(vals, float64(n))
		}
	}
	mean = stat.Mean(vals, nil)
	stddev = stat.PopStdDev(vals, nil)
	return mean, stddev
}
