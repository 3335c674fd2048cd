package stats

import (
	"testing"
	"time"

	"lotto-engine/internal/draws"
)

func mkHistory(rows [][]int) []draws.Draw {
	out := make([]draws.Draw, len(rows))
	base := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	for i, nums := range rows {
		out[i] = draws.Draw{
			DrawNumber: i + 1,
			DrawDate:   base.AddDate(0, 0, 7*i),
			Numbers:    nums,
			Bonus:      45,
		}
	}
	return out
}

func TestFrequencies_Empty(t *testing.T) {
	a := NewAnalyzer(20)
	freqs := a.Frequencies(nil)
	if len(freqs) != draws.NumberPool {
		t.Fatalf("expected %d entries, got %d", draws.NumberPool, len(freqs))
	}
	for _, f := range freqs {
		if f.Appearances != 0 || f.Percent != 0 || f.Trend != TrendNormal {
			t.Errorf("empty history should yield zeroed NORMAL stats, got %+v", f)
		}
	}
}

func TestFrequencies_CountsAndGaps(t *testing.T) {
	history := mkHistory([][]int{
		{1, 2, 3, 4, 5, 6},
		{1, 7, 8, 9, 10, 11},
		{2, 12, 13, 14, 15, 16},
	})
	a := NewAnalyzer(20)
	freqs := a.Frequencies(history)

	if freqs[0].Appearances != 2 {
		t.Errorf("number 1 appearances = %d, want 2", freqs[0].Appearances)
	}
	// 1 last seen in draw index 1 of 3
	if freqs[0].GapSinceLast != 1 {
		t.Errorf("number 1 gap = %d, want 1", freqs[0].GapSinceLast)
	}
	// 44 never seen
	if freqs[43].GapSinceLast != 3 {
		t.Errorf("unseen number gap = %d, want history length 3", freqs[43].GapSinceLast)
	}
}

func TestTrendClassification(t *testing.T) {
	// Number 5 in four of the last five draws: HOT. Number 40 absent: COLD.
	history := mkHistory([][]int{
		{5, 10, 11, 12, 13, 14},
		{5, 20, 21, 22, 23, 24},
		{5, 30, 31, 32, 33, 34},
		{5, 15, 16, 17, 18, 19},
		{1, 2, 3, 4, 6, 7},
	})
	a := NewAnalyzer(20)

	hot := a.HotNumbers(history)
	if len(hot) != 1 || hot[0] != 5 {
		t.Errorf("hot = %v, want [5]", hot)
	}
	cold := a.ColdNumbers(history)
	found := false
	for _, n := range cold {
		if n == 40 {
			found = true
		}
		if n == 5 {
			t.Errorf("5 must not be cold")
		}
	}
	if !found {
		t.Errorf("40 should be cold, cold = %v", cold)
	}
}

func TestTrendWindowLimits(t *testing.T) {
	// 25 draws all containing number 9; with window 20 only the last 20 count.
	rows := make([][]int, 25)
	for i := range rows {
		rows[i] = []int{9, 10, 11, 12, 13, 14}
	}
	a := NewAnalyzer(20)
	counts := a.TrendCounts(mkHistory(rows))
	if counts[8] != 20 {
		t.Errorf("windowed count = %d, want 20", counts[8])
	}
}

func TestAnalyzeCombination(t *testing.T) {
	history := mkHistory([][]int{
		{2, 10, 11, 12, 13, 14},
		{2, 20, 21, 22, 23, 24},
		{2, 30, 31, 32, 33, 34},
		{2, 15, 16, 17, 18, 19},
	})
	a := NewAnalyzer(20)

	an := a.AnalyzeCombination([]int{2, 3, 4, 17, 31, 44}, history)
	if an.Sum != 101 {
		t.Errorf("sum = %d, want 101", an.Sum)
	}
	if an.OddEvenRatio != 3.0/6.0 {
		t.Errorf("odd ratio = %f, want 0.5", an.OddEvenRatio)
	}
	// 2,3,4 form one consecutive run
	if an.ConsecutiveCount != 1 {
		t.Errorf("consecutive runs = %d, want 1", an.ConsecutiveCount)
	}
	if an.HotCount != 1 {
		t.Errorf("hot count = %d, want 1 (number 2)", an.HotCount)
	}
	// 2,3,4 low; 17 mid; 31,44 high
	if an.RangeDist != [3]int{3, 1, 2} {
		t.Errorf("range dist = %v, want [3 1 2]", an.RangeDist)
	}
}

func TestSummaryFeatures_EmptyDefaults(t *testing.T) {
	mean, stddev := SummaryFeatures(nil)
	if mean != 23.0 || stddev != 0 {
		t.Errorf("empty defaults = %f/%f, want 23/0", mean, stddev)
	}
}
