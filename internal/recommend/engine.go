package recommend

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"lotto-engine/internal/common"
	"lotto-engine/internal/draws"
	"lotto-engine/internal/stats"
)

// ErrValidation marks rejected caller input.
var ErrValidation = errors.New("invalid request")

// Confidence display band for statistically derived recommendations.
const (
	statConfidenceMin = 0.15
	statConfidenceMax = 0.65
)

// Base-score weighting between long-run frequency and recent trend.
const (
	frequencyWeight = 0.6
	trendWeight     = 0.4
)

// Preferences carries user number constraints.
type Preferences struct {
	Include []int `json:"include_numbers"`
	Exclude []int `json:"exclude_numbers"`
}

func (p Preferences) Validate() error {
	if len(p.Include) > common.MaxIncludeNumbers {
		return fmt.Errorf("%w: at most %d include numbers", ErrValidation, common.MaxIncludeNumbers)
	}
	if len(p.Exclude) > common.MaxExcludeNumbers {
		return fmt.Errorf("%w: at most %d exclude numbers", ErrValidation, common.MaxExcludeNumbers)
	}
	seen := map[int]bool{}
	for _, n := range p.Include {
		if n < 1 || n > draws.NumberPool {
			return fmt.Errorf("%w: include number %d out of range", ErrValidation, n)
		}
		if seen[n] {
			return fmt.Errorf("%w: duplicate include number %d", ErrValidation, n)
		}
		seen[n] = true
	}
	for _, n := range p.Exclude {
		if n < 1 || n > draws.NumberPool {
			return fmt.Errorf("%w: exclude number %d out of range", ErrValidation, n)
		}
		if seen[n] {
			return fmt.Errorf("%w: number %d both included and excluded", ErrValidation, n)
		}
	}
	if draws.NumberPool-len(p.Exclude) < draws.PickCount {
		return fmt.Errorf("%w: exclusions leave fewer than %d numbers", ErrValidation, draws.PickCount)
	}
	return nil
}

// Recommender generates combinations by weighted sampling over per-number
// scores, then ranks candidates with pattern and balance heuristics. The
// rand source is injectable for deterministic tests.
type Recommender struct {
	analyzer *stats.Analyzer
	rng      *rand.Rand
	factor   int
}

func NewRecommender(window, candidateFactor int, rng *rand.Rand) *Recommender {
	if candidateFactor <= 0 {
		candidateFactor = common.DefaultCandidateFactor
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Recommender{
		analyzer: stats.NewAnalyzer(window),
		rng:      rng,
		factor:   candidateFactor,
	}
}

func (r *Recommender) Analyzer() *stats.Analyzer { return r.analyzer }

// Generate produces count ranked combinations. Previously served
// combinations can be passed in exclude to avoid repeats across calls.
func (r *Recommender) Generate(history []draws.Draw, count int, prefs Preferences, exclude [][]int) ([]draws.Combination, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: combination count %d", ErrValidation, count)
	}
	if err := prefs.Validate(); err != nil {
		return nil, err
	}

	scores := r.baseScores(history)
	applyPreferences(scores, prefs)

	candidates := r.candidates(scores, count*r.factor, prefs)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("candidate generation produced nothing")
	}

	scored := r.scoreCandidates(candidates, scores)
	top := selectTop(scored, count, exclude)
	for i := range top {
		an := r.analyzer.AnalyzeCombination(top[i].Numbers, history)
		top[i].Analysis = &an
	}
	return top, nil
}

// baseScores weighs long-run appearance frequency against the recent
// trend classification for every number. Index 0 holds number 1.
func (r *Recommender) baseScores(history []draws.Draw) []float64 {
	freqs := r.analyzer.Frequencies(history)
	scores := make([]float64, draws.NumberPool)
	for i, f := range freqs {
		freqScore := 1.0
		if len(history) > 0 {
			freqScore = math.Max(0.5, math.Min(1.5, f.ExpectedRatio))
		}
		trendScore := 1.0
		switch f.Trend {
		case stats.TrendHot:
			trendScore = 1.3
		case stats.TrendCold:
			// Cold numbers get a small bump for reversion potential.
			trendScore = 1.1
		}
		scores[i] = freqScore*frequencyWeight + trendScore*trendWeight
	}
	return scores
}

func applyPreferences(scores []float64, prefs Preferences) {
	for _, n := range prefs.Include {
		scores[n-1] *= 1.5
	}
	for _, n := range prefs.Exclude {
		scores[n-1] *= 0.1
	}
}

// candidates builds a pool of distinct combinations by weighted sampling.
// Excluded numbers leave the pool entirely; included numbers are seeded
// into every candidate.
func (r *Recommender) candidates(scores []float64, poolSize int, prefs Preferences) [][]int {
	excluded := make([]bool, draws.NumberPool)
	for _, n := range prefs.Exclude {
		excluded[n-1] = true
	}
	var available []int
	for n := 1; n <= draws.NumberPool; n++ {
		if !excluded[n-1] {
			available = append(available, n)
		}
	}

	var pool [][]int
	seen := make(map[string]struct{})
	maxAttempts := poolSize * 10
	for attempts := 0; len(pool) < poolSize && attempts < maxAttempts; attempts++ {
		combo := r.sampleCombination(scores, available, prefs.Include)
		if combo == nil {
			continue
		}
		key := draws.Key(combo)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		pool = append(pool, combo)
	}
	return pool
}

func (r *Recommender) sampleCombination(scores []float64, available, include []int) []int {
	combo := append([]int(nil), include...)
	member := make(map[int]bool, draws.PickCount)
	for _, n := range combo {
		member[n] = true
	}

	for guard := 0; len(combo) < draws.PickCount && guard < 1000; guard++ {
		n := r.weightedPick(scores, available)
		if n == 0 {
			return nil
		}
		if !member[n] {
			member[n] = true
			combo = append(combo, n)
		}
	}
	if len(combo) != draws.PickCount {
		return nil
	}
	sort.Ints(combo)
	return combo
}

func (r *Recommender) weightedPick(scores []float64, available []int) int {
	var total float64
	for _, n := range available {
		total += scores[n-1]
	}
	if total <= 0 {
		return 0
	}
	t := r.rng.Float64() * total
	for _, n := range available {
		t -= scores[n-1]
		if t <= 0 {
			return n
		}
	}
	return available[len(available)-1]
}

func (r *Recommender) scoreCandidates(pool [][]int, scores []float64) []draws.Combination {
	out := make([]draws.Combination, 0, len(pool))
	for _, combo := range pool {
		var individual float64
		for _, n := range combo {
			individual += scores[n-1]
		}
		individual /= float64(draws.PickCount)

		total := individual*0.40 + patternScore(combo)*0.35 + balanceScore(combo)*0.25
		out = append(out, draws.Combination{
			Numbers:         combo,
			TotalScore:      total,
			ConfidenceScore: r.confidence(total),
		})
	}
	return out
}

// confidence maps a raw combination score into the display band with
// piecewise compression and +-10% jitter so served scores look like a
// spread rather than a single cluster.
func (r *Recommender) confidence(total float64) float64 {
	adjusted := total * (0.9 + r.rng.Float64()*0.2)

	var normalized float64
	switch {
	case adjusted > 0.85:
		normalized = 0.55 + (adjusted-0.85)*0.67
	case adjusted > 0.70:
		normalized = 0.45 + (adjusted-0.70)*0.67
	case adjusted > 0.50:
		normalized = 0.32 + (adjusted-0.50)*0.65
	case adjusted > 0.30:
		normalized = 0.22 + (adjusted-0.30)*0.50
	default:
		normalized = 0.15 + adjusted*0.23
	}
	return math.Min(statConfidenceMax, math.Max(statConfidenceMin, normalized))
}

func selectTop(scored []draws.Combination, count int, exclude [][]int) []draws.Combination {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].TotalScore > scored[j].TotalScore
	})
	skip := make(map[string]struct{}, len(exclude))
	for _, combo := range exclude {
		skip[draws.Key(combo)] = struct{}{}
	}

	var selected []draws.Combination
	for _, c := range scored {
		if len(selected) >= count {
			break
		}
		key := draws.Key(c.Numbers)
		if _, skipIt := skip[key]; skipIt {
			continue
		}
		skip[key] = struct{}{}
		selected = append(selected, c)
	}
	return selected
}

func patternScore(numbers []int) float64 {
	sorted := append([]int(nil), numbers...)
	sort.Ints(sorted)
	return oddEvenScore(sorted)*0.25 +
		rangeScore(sorted)*0.25 +
		consecutiveScore(sorted)*0.20 +
		gapBalanceScore(sorted)*0.20 +
		endingScore(sorted)*0.10
}

func balanceScore(numbers []int) float64 {
	sorted := append([]int(nil), numbers...)
	sort.Ints(sorted)
	// Historical-similarity term is a fixed prior until a real
	// pattern-matching pass exists.
	const similarity = 0.8
	return meanDeviationScore(sorted)*0.30 +
		varianceScore(sorted)*0.25 +
		extremeRangeScore(sorted)*0.25 +
		similarity*0.20
}

func oddEvenScore(numbers []int) float64 {
	odd := 0
	for _, n := range numbers {
		if n%2 == 1 {
			odd++
		}
	}
	switch odd {
	case 3:
		return 1.0
	case 2, 4:
		return 0.8
	default:
		return 0.5
	}
}

func rangeScore(numbers []int) float64 {
	var bands [3]int
	for _, n := range numbers {
		switch {
		case n <= 15:
			bands[0]++
		case n <= 30:
			bands[1]++
		default:
			bands[2]++
		}
	}
	if bands[0] == 2 && bands[1] == 2 && bands[2] == 2 {
		return 1.0
	}
	if absInt(bands[0]-bands[1]) <= 1 && absInt(bands[1]-bands[2]) <= 1 && absInt(bands[0]-bands[2]) <= 1 {
		return 0.8
	}
	return 0.6
}

func consecutiveScore(sorted []int) float64 {
	pairs := 0
	for i := 1; i < len(sorted); i++ {
		if sorted[i]-sorted[i-1] == 1 {
			pairs++
		}
	}
	switch pairs {
	case 0:
		return 1.0
	case 1:
		return 0.8
	case 2:
		return 0.6
	default:
		return 0.3
	}
}

func gapBalanceScore(sorted []int) float64 {
	if len(sorted) < 3 {
		return 1.0
	}
	gaps := make([]float64, len(sorted)-1)
	var mean float64
	for i := 1; i < len(sorted); i++ {
		gaps[i-1] = float64(sorted[i] - sorted[i-1])
		mean += gaps[i-1]
	}
	mean /= float64(len(gaps))
	var variance float64
	for _, g := range gaps {
		variance += (g - mean) * (g - mean)
	}
	std := math.Sqrt(variance / float64(len(gaps)))
	switch {
	case std <= 2:
		return 1.0
	case std <= 4:
		return 0.8
	case std <= 6:
		return 0.6
	default:
		return 0.4
	}
}

func endingScore(numbers []int) float64 {
	endings := map[int]bool{}
	for _, n := range numbers {
		endings[n%10] = true
	}
	switch len(endings) {
	case 6:
		return 1.0
	case 5:
		return 0.8
	case 4:
		return 0.6
	default:
		return 0.4
	}
}

func meanDeviationScore(numbers []int) float64 {
	var sum float64
	for _, n := range numbers {
		sum += float64(n)
	}
	deviation := math.Abs(sum/float64(len(numbers)) - 23.0)
	switch {
	case deviation <= 2:
		return 1.0
	case deviation <= 4:
		return 0.8
	case deviation <= 6:
		return 0.6
	default:
		return 0.4
	}
}

func varianceScore(numbers []int) float64 {
	var sum float64
	for _, n := range numbers {
		sum += float64(n)
	}
	mean := sum / float64(len(numbers))
	var variance float64
	for _, n := range numbers {
		variance += (float64(n) - mean) * (float64(n) - mean)
	}
	variance /= float64(len(numbers))
	switch {
	case variance >= 50 && variance <= 200:
		return 1.0
	case variance >= 30 && variance <= 250:
		return 0.8
	case variance >= 20 && variance <= 300:
		return 0.6
	default:
		return 0.4
	}
}

func extremeRangeScore(sorted []int) float64 {
	spread := sorted[len(sorted)-1] - sorted[0]
	switch {
	case spread >= 20 && spread <= 35:
		return 1.0
	case spread >= 15 && spread <= 40:
		return 0.8
	case spread >= 10 && spread <= 44:
		return 0.6
	default:
		return 0.4
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
