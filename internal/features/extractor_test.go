package features

import (
	"math"
	"reflect"
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
			Bonus:      freeBonus(nums),
		}
	}
	return out
}

// freeBonus picks a bonus number absent from the main numbers.
func freeBonus(nums []int) int {
	taken := make(map[int]bool, len(nums))
	for _, n := range nums {
		taken[n] = true
	}
	for b := draws.NumberPool; b >= 1; b-- {
		if !taken[b] {
			return b
		}
	}
	return 0
}

func TestExtract_EmptyHistoryDefaults(t *testing.T) {
	e := NewExtractor(20)
	v := e.Extract(nil)
	if len(v) != Count {
		t.Fatalf("vector length = %d, want %d", len(v), Count)
	}
	for i := 0; i < StatOffset; i++ {
		if v[i] != 0 {
			t.Fatalf("feature %d = %f, want 0 for empty history", i, v[i])
		}
	}
	want := []float64{23, 0, 1, 45, 44, 0.33, 0.33, 0.34, 0.5, 0.5}
	if !reflect.DeepEqual(v[StatOffset:], want) {
		t.Errorf("aggregate defaults = %v, want %v", v[StatOffset:], want)
	}
}

func TestExtract_Ratios(t *testing.T) {
	history := mkHistory([][]int{
		{1, 2, 3, 4, 5, 6},
		{1, 7, 8, 9, 10, 11},
	})
	e := NewExtractor(20)
	v := e.Extract(history)

	// Number 1: 2 appearances in 2 draws; expected = 2*6/45.
	expected := 2.0 * 6.0 / 45.0
	if math.Abs(v[FreqOffset]-2.0/expected) > 1e-12 {
		t.Errorf("freq[1] = %f, want %f", v[FreqOffset], 2.0/expected)
	}
	// Trend ratio: 2 appearances over 2 windowed draws.
	if v[TrendOffset] != 1.0 {
		t.Errorf("trend[1] = %f, want 1.0", v[TrendOffset])
	}
	// Appearance ratio: 2/2.
	if v[CoOffset] != 1.0 {
		t.Errorf("co[1] = %f, want 1.0", v[CoOffset])
	}
	// Number 45 never drawn.
	if v[FreqOffset+44] != 0 || v[TrendOffset+44] != 0 || v[CoOffset+44] != 0 {
		t.Errorf("unseen number must have zero ratios")
	}
}

func TestExtract_Deterministic(t *testing.T) {
	history := mkHistory([][]int{
		{3, 8, 17, 24, 31, 42},
		{5, 9, 14, 28, 33, 40},
		{3, 11, 19, 26, 35, 44},
	})
	e := NewExtractor(20)
	a := e.Extract(history)
	b := e.Extract(history)
	if !reflect.DeepEqual(a, b) {
		t.Error("extraction must be deterministic for identical history")
	}
}

func TestDataset_NoLeakage(t *testing.T) {
	history := mkHistory([][]int{
		{1, 2, 3, 4, 5, 6},
		{40, 41, 42, 43, 44, 45},
	})
	e := NewExtractor(20)
	X, Y, err := e.Dataset(history)
	if err != nil {
		t.Fatal(err)
	}
	if len(X) != 2 || len(Y) != 2 {
		t.Fatalf("rows = %d/%d, want 2/2", len(X), len(Y))
	}
	// Row 0 has no prior draws: all ratio features zero even though the
	// label marks its own numbers.
	for i := 0; i < StatOffset; i++ {
		if X[0][i] != 0 {
			t.Fatalf("row 0 leaked its own draw at feature %d", i)
		}
	}
	if Y[0][0] != 1 || Y[0][44] != 0 {
		t.Errorf("row 0 label wrong: %v", Y[0][:6])
	}
	// Row 1 saw only draw 0, which never contained 45.
	if X[1][CoOffset+44] != 0 {
		t.Errorf("row 1 leaked its own draw")
	}
	if Y[1][44] != 1 {
		t.Errorf("row 1 label must mark 45")
	}
}

func TestDataset_RejectsInvalidDraw(t *testing.T) {
	history := mkHistory([][]int{{1, 1, 3, 4, 5, 6}})
	e := NewExtractor(20)
	if _, _, err := e.Dataset(history); err == nil {
		t.Error("expected error for invalid draw")
	}
}

func TestLabels(t *testing.T) {
	y := Labels([]int{1, 10, 45})
	if y[0] != 1 || y[9] != 1 || y[44] != 1 {
		t.Errorf("labels = %v", y)
	}
	sum := 0.0
	for _, v := range y {
		sum += v
	}
	if sum != 3 {
		t.Errorf("label mass = %f, want 3", sum)
	}
}
