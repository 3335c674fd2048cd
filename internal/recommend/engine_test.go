package recommend

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"lotto-engine/internal/draws"
)

func mkHistory(n int) []draws.Draw {
	rng := rand.New(rand.NewSource(99))
	base := time.Date(2023, 1, 7, 0, 0, 0, 0, time.UTC)
	out := make([]draws.Draw, n)
	for i := range out {
		perm := rng.Perm(draws.NumberPool)
		nums := make([]int, draws.PickCount)
		for j := range nums {
			nums[j] = perm[j] + 1
		}
		sortInts(nums)
		out[i] = draws.Draw{
			DrawNumber: i + 1,
			DrawDate:   base.AddDate(0, 0, 7*i),
			Numbers:    nums,
			Bonus:      perm[draws.PickCount] + 1,
		}
	}
	return out
}

func sortInts(v []int) {
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j-1] > v[j]; j-- {
			v[j-1], v[j] = v[j], v[j-1]
		}
	}
}

func TestGenerate_Basic(t *testing.T) {
	r := NewRecommender(20, 10, rand.New(rand.NewSource(1)))
	combos, err := r.Generate(mkHistory(100), 5, Preferences{}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(combos) != 5 {
		t.Fatalf("got %d combinations, want 5", len(combos))
	}

	seen := map[string]bool{}
	for _, c := range combos {
		if err := draws.ValidateNumbers(c.Numbers); err != nil {
			t.Errorf("invalid combination %v: %v", c.Numbers, err)
		}
		if c.ConfidenceScore < 0.15 || c.ConfidenceScore > 0.65 {
			t.Errorf("confidence %f outside display band", c.ConfidenceScore)
		}
		if c.Analysis == nil {
			t.Error("combination missing analysis")
		}
		key := draws.Key(c.Numbers)
		if seen[key] {
			t.Errorf("duplicate combination %v", c.Numbers)
		}
		seen[key] = true
	}
}

func TestGenerate_EmptyHistory(t *testing.T) {
	r := NewRecommender(20, 10, rand.New(rand.NewSource(2)))
	combos, err := r.Generate(nil, 3, Preferences{}, nil)
	if err != nil {
		t.Fatalf("empty history must still produce combinations: %v", err)
	}
	if len(combos) != 3 {
		t.Fatalf("got %d combinations, want 3", len(combos))
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	history := mkHistory(50)
	a, err := NewRecommender(20, 10, rand.New(rand.NewSource(7))).Generate(history, 4, Preferences{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewRecommender(20, 10, rand.New(rand.NewSource(7))).Generate(history, 4, Preferences{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if draws.Key(a[i].Numbers) != draws.Key(b[i].Numbers) {
			t.Fatalf("combination %d differs across identical seeds", i)
		}
		if a[i].ConfidenceScore != b[i].ConfidenceScore {
			t.Fatalf("confidence %d differs across identical seeds", i)
		}
	}
}

func TestGenerate_Preferences(t *testing.T) {
	r := NewRecommender(20, 10, rand.New(rand.NewSource(3)))
	prefs := Preferences{Include: []int{7, 13}, Exclude: []int{1, 2, 3}}
	combos, err := r.Generate(mkHistory(80), 5, prefs, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range combos {
		has7, has13 := false, false
		for _, n := range c.Numbers {
			if n == 7 {
				has7 = true
			}
			if n == 13 {
				has13 = true
			}
			if n == 1 || n == 2 || n == 3 {
				t.Errorf("excluded number %d in %v", n, c.Numbers)
			}
		}
		if !has7 || !has13 {
			t.Errorf("included numbers missing from %v", c.Numbers)
		}
	}
}

func TestGenerate_ExcludesServedCombinations(t *testing.T) {
	history := mkHistory(60)
	r := NewRecommender(20, 10, rand.New(rand.NewSource(4)))
	first, err := r.Generate(history, 3, Preferences{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	var served [][]int
	for _, c := range first {
		served = append(served, c.Numbers)
	}

	second, err := r.Generate(history, 3, Preferences{}, served)
	if err != nil {
		t.Fatal(err)
	}
	servedKeys := map[string]bool{}
	for _, s := range served {
		servedKeys[draws.Key(s)] = true
	}
	for _, c := range second {
		if servedKeys[draws.Key(c.Numbers)] {
			t.Errorf("repeated served combination %v", c.Numbers)
		}
	}
}

func TestGenerate_Validation(t *testing.T) {
	r := NewRecommender(20, 10, rand.New(rand.NewSource(5)))
	history := mkHistory(10)

	cases := []struct {
		name  string
		count int
		prefs Preferences
	}{
		{"zero count", 0, Preferences{}},
		{"too many includes", 3, Preferences{Include: []int{1, 2, 3, 4, 5, 6}}},
		{"too many excludes", 3, Preferences{Exclude: []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}}},
		{"overlap", 3, Preferences{Include: []int{9}, Exclude: []int{9}}},
		{"out of range include", 3, Preferences{Include: []int{46}}},
		{"out of range exclude", 3, Preferences{Exclude: []int{0}}},
		{"duplicate include", 3, Preferences{Include: []int{4, 4}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := r.Generate(history, tc.count, tc.prefs, nil)
			if !errors.Is(err, ErrValidation) {
				t.Errorf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestPatternScore_Components(t *testing.T) {
	// 3 odd / 3 even, one per case of the odd/even table.
	if got := oddEvenScore([]int{1, 2, 3, 4, 5, 6}); got != 1.0 {
		t.Errorf("3:3 odd/even = %f, want 1.0", got)
	}
	if got := oddEvenScore([]int{2, 4, 6, 8, 10, 12}); got != 0.5 {
		t.Errorf("all even = %f, want 0.5", got)
	}

	if got := rangeScore([]int{3, 9, 18, 25, 33, 41}); got != 1.0 {
		t.Errorf("2-2-2 split = %f, want 1.0", got)
	}
	if got := rangeScore([]int{1, 2, 3, 4, 5, 6}); got != 0.6 {
		t.Errorf("single band = %f, want 0.6", got)
	}

	if got := consecutiveScore([]int{1, 2, 3, 4, 10, 20}); got != 0.3 {
		t.Errorf("three consecutive pairs = %f, want 0.3", got)
	}
	if got := consecutiveScore([]int{1, 10, 20, 30, 40, 45}); got != 1.0 {
		t.Errorf("no consecutives = %f, want 1.0", got)
	}

	if got := endingScore([]int{1, 12, 23, 34, 41, 6}); got != 0.8 {
		t.Errorf("five distinct endings = %f, want 0.8", got)
	}
}

func TestBalanceScore_Components(t *testing.T) {
	// Mean exactly 23.
	if got := meanDeviationScore([]int{3, 13, 20, 26, 33, 43}); got != 1.0 {
		t.Errorf("mean 23 = %f, want 1.0", got)
	}
	// Tight cluster: variance below 20.
	if got := varianceScore([]int{20, 21, 22, 23, 24, 25}); got != 0.4 {
		t.Errorf("tight cluster variance = %f, want 0.4", got)
	}
	// Spread 28 sits in the ideal band.
	if got := extremeRangeScore([]int{10, 15, 20, 25, 30, 38}); got != 1.0 {
		t.Errorf("spread 28 = %f, want 1.0", got)
	}
	// Spread 5 is too narrow.
	if got := extremeRangeScore([]int{20, 21, 22, 23, 24, 25}); got != 0.4 {
		t.Errorf("spread 5 = %f, want 0.4", got)
	}
}
