// Package draws defines the lottery domain model shared across the engine:
// historical draw results, recommended combinations, and winning-result
// evaluation. All other packages depend on the invariants enforced here.
package draws

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

const (
	// NumberPool is the size of the number pool (numbers run 1..NumberPool).
	NumberPool = 45
	// PickCount is how many numbers make up a draw or a combination.
	PickCount = 6
)

// Draw is one historical lottery result. Draws are append-only and unique
// by DrawNumber; they are never mutated after ingestion.
type Draw struct {
	DrawNumber int       `json:"draw_number"`
	DrawDate   time.Time `json:"draw_date"`
	Numbers    []int     `json:"numbers"`
	Bonus      int       `json:"bonus_number"`
}

// Validate checks the draw invariants: a positive draw number, exactly six
// distinct sorted numbers in range, and a bonus in range that is not one of
// the six.
func (d Draw) Validate() error {
	if d.DrawNumber <= 0 {
		return fmt.Errorf("draw number must be positive, got %d", d.DrawNumber)
	}
	if err := ValidateNumbers(d.Numbers); err != nil {
		return fmt.Errorf("draw %d: %w", d.DrawNumber, err)
	}
	if d.Bonus < 1 || d.Bonus > NumberPool {
		return fmt.Errorf("draw %d: bonus number %d outside 1-%d", d.DrawNumber, d.Bonus, NumberPool)
	}
	for _, n := range d.Numbers {
		if n == d.Bonus {
			return fmt.Errorf("draw %d: bonus number %d duplicates a main number", d.DrawNumber, d.Bonus)
		}
	}
	return nil
}

// Combination is one recommended set of six numbers with its display
// confidence. TotalScore is the raw ranking score before confidence
// mapping; it is not served. Immutable after creation.
type Combination struct {
	Numbers         []int     `json:"numbers"`
	ConfidenceScore float64   `json:"confidence_score"`
	TotalScore      float64   `json:"-"`
	Analysis        *Analysis `json:"analysis,omitempty"`
}

// Analysis holds the descriptive statistics attached to a recommended
// combination. RangeDist counts members in the 1-15, 16-30 and 31-45
// bands.
type Analysis struct {
	HotCount         int     `json:"hot_numbers"`
	ColdCount        int     `json:"cold_numbers"`
	OddEvenRatio     float64 `json:"odd_even_ratio"`
	Sum              int     `json:"sum"`
	ConsecutiveCount int     `json:"consecutive_count"`
	RangeDist        [3]int  `json:"range_distribution"`
}

// ValidateNumbers checks that numbers holds exactly six distinct values in
// 1..NumberPool sorted ascending.
func ValidateNumbers(numbers []int) error {
	if len(numbers) != PickCount {
		return fmt.Errorf("expected %d numbers, got %d", PickCount, len(numbers))
	}
	seen := make(map[int]bool, PickCount)
	for i, n := range numbers {
		if n < 1 || n > NumberPool {
			return fmt.Errorf("number %d outside 1-%d", n, NumberPool)
		}
		if seen[n] {
			return fmt.Errorf("duplicate number %d", n)
		}
		seen[n] = true
		if i > 0 && numbers[i-1] > n {
			return fmt.Errorf("numbers not sorted ascending")
		}
	}
	return nil
}

// Key returns a canonical string for a set of numbers, used for exact-tuple
// deduplication of combinations. The input need not be sorted.
func Key(numbers []int) string {
	sorted := append([]int(nil), numbers...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, n := range sorted {
		parts[i] = fmt.Sprintf("%02d", n)
	}
	return strings.Join(parts, "-")
}

// MatchCount returns how many numbers appear in both slices.
func MatchCount(predicted, actual []int) int {
	set := make(map[int]bool, len(predicted))
	for _, n := range predicted {
		set[n] = true
	}
	matched := 0
	for _, n := range actual {
		if set[n] {
			matched++
		}
	}
	return matched
}

// WinResult describes how a combination fared against an actual draw.
// Rank 0 means no prize.
type WinResult struct {
	Rank    int   `json:"rank"`
	Amount  int64 `json:"amount"`
	Matched int   `json:"matched"`
}

// Prize table ranks: 6 matches is first prize, 5 matches plus the bonus is
// second, then 5, 4 and 3 matches. Amounts are representative fixed values;
// real payouts vary per draw.
func CheckWinningResult(combination, winning []int, bonus int) WinResult {
	if len(combination) != PickCount || len(winning) != PickCount {
		return WinResult{}
	}
	matched := MatchCount(combination, winning)
	hasBonus := false
	for _, n := range combination {
		if n == bonus {
			hasBonus = true
			break
		}
	}
	switch {
	case matched == 6:
		return WinResult{Rank: 1, Amount: 2_000_000_000, Matched: matched}
	case matched == 5 && hasBonus:
		return WinResult{Rank: 2, Amount: 50_000_000, Matched: matched}
	case matched == 5:
		return WinResult{Rank: 3, Amount: 1_500_000, Matched: matched}
	case matched == 4:
		return WinResult{Rank: 4, Amount: 50_000, Matched: matched}
	case matched == 3:
		return WinResult{Rank: 5, Amount: 5_000, Matched: matched}
	default:
		return WinResult{Matched: matched}
	}
}
