package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"lotto-engine/internal/draws"
)

// Confidence display band for model-driven recommendations.
const (
	ConfidenceMin = 0.20
	ConfidenceMax = 0.75
)

const entropyExponent = 1.5

// Confidence describes how peaked the predicted distribution is.
type Confidence struct {
	Overall float64 `json:"overall_confidence"`
	Entropy float64 `json:"entropy"`
	TopMass float64 `json:"top_number_confidence"`
}

// Engine turns per-number probabilities into scored combinations.
// The rand source is injectable so tests run deterministically.
type Engine struct {
	rng *rand.Rand
}

func NewEngine(rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{rng: rng}
}

// PredictProbabilities runs the model and normalizes its 45 independent
// outputs into a distribution summing to one.
func (e *Engine) PredictProbabilities(m *Model, features []float64) ([]float64, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: model is nil", ErrInference)
	}
	if len(features) == 0 {
		return nil, fmt.Errorf("%w: empty feature vector", ErrInference)
	}
	probs, err := m.Predict(features)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInference, err)
	}
	var sum float64
	for _, p := range probs {
		if p < 0 || math.IsNaN(p) {
			return nil, fmt.Errorf("%w: degenerate probability output", ErrInference)
		}
		sum += p
	}
	if sum <= 0 {
		return nil, fmt.Errorf("%w: zero probability mass", ErrInference)
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}

// GenerateCombinations draws count distinct six-number combinations by
// weighted sampling without replacement. The attempt budget of count*100
// bounds the loop when the distribution is too peaked to produce enough
// distinct picks.
func (e *Engine) GenerateCombinations(probs []float64, count int) ([][]int, error) {
	if len(probs) != draws.NumberPool {
		return nil, fmt.Errorf("%w: %d probabilities, want %d", ErrInference, len(probs), draws.NumberPool)
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: combination count %d", ErrInference, count)
	}

	var combos [][]int
	seen := make(map[string]struct{})
	maxAttempts := count * 100
	for attempts := 0; len(combos) < count && attempts < maxAttempts; attempts++ {
		combo := e.sampleWithoutReplacement(probs)
		key := draws.Key(combo)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		combos = append(combos, combo)
	}
	if len(combos) == 0 {
		return nil, fmt.Errorf("%w: sampling produced no combinations", ErrInference)
	}
	return combos, nil
}

func (e *Engine) sampleWithoutReplacement(probs []float64) []int {
	weights := append([]float64(nil), probs...)
	var total float64
	for _, w := range weights {
		total += w
	}

	picked := make([]int, 0, draws.PickCount)
	for len(picked) < draws.PickCount {
		r := e.rng.Float64() * total
		idx := len(weights) - 1
		for i, w := range weights {
			if w == 0 {
				continue
			}
			r -= w
			if r <= 0 {
				idx = i
				break
			}
		}
		if weights[idx] == 0 {
			// Remaining mass is numerically exhausted; fall back to the
			// first weight still standing.
			for i, w := range weights {
				if w > 0 {
					idx = i
					break
				}
			}
		}
		picked = append(picked, idx+1)
		total -= weights[idx]
		weights[idx] = 0
	}
	sort.Ints(picked)
	return picked
}

// ConfidenceScores maps the distribution's shape into the display band.
// Peaked distributions (low entropy, heavy top-6 mass) score high, uniform
// ones bottom out near ConfidenceMin.
func (e *Engine) ConfidenceScores(probs []float64) Confidence {
	var entropy float64
	for _, p := range probs {
		if p > 0 {
			entropy -= p * math.Log(p)
		}
	}
	maxEntropy := math.Log(float64(len(probs)))
	normalized := 0.0
	if maxEntropy > 0 {
		normalized = entropy / maxEntropy
	}

	sorted := append([]float64(nil), probs...)
	sort.Float64s(sorted)
	var topMass float64
	for _, p := range sorted[len(sorted)-draws.PickCount:] {
		topMass += p
	}

	raw := 0.5*math.Pow(1-normalized, entropyExponent) + 0.5*topMass
	overall := ConfidenceMin + raw*(ConfidenceMax-ConfidenceMin)
	overall = math.Max(ConfidenceMin, math.Min(ConfidenceMax, overall))

	return Confidence{Overall: overall, Entropy: entropy, TopMass: topMass}
}

// ApplyPreferences keeps combinations that contain at least one included
// number (when includes are given) and none of the excluded numbers.
func ApplyPreferences(combos [][]int, include, exclude []int) [][]int {
	inc := toSet(include)
	exc := toSet(exclude)

	var filtered [][]int
	for _, combo := range combos {
		if intersects(combo, exc) {
			continue
		}
		if len(inc) > 0 && !intersects(combo, inc) {
			continue
		}
		filtered = append(filtered, combo)
	}
	return filtered
}

func toSet(nums []int) map[int]struct{} {
	if len(nums) == 0 {
		return nil
	}
	s := make(map[int]struct{}, len(nums))
	for _, n := range nums {
		s[n] = struct{}{}
	}
	return s
}

func intersects(combo []int, set map[int]struct{}) bool {
	for _, n := range combo {
		if _, ok := set[n]; ok {
			return true
		}
	}
	return false
}
