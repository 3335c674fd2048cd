package ml

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/floats"
)

// TrainConfig controls the gradient-descent fit.
type TrainConfig struct {
	Epochs       int
	LearningRate float64
	L2           float64
	TrendWindow  int
}

func (c TrainConfig) withDefaults() TrainConfig {
	if c.Epochs <= 0 {
		c.Epochs = 200
	}
	if c.LearningRate <= 0 {
		c.LearningRate = 0.1
	}
	if c.L2 < 0 {
		c.L2 = 0
	}
	return c
}

// Metrics summarizes model quality on a held-out set.
type Metrics struct {
	Accuracy        float64   `json:"accuracy"`
	SubsetAccuracy  float64   `json:"subset_accuracy"`
	HammingLoss     float64   `json:"hamming_loss"`
	Precision       float64   `json:"precision"`
	Recall          float64   `json:"recall"`
	F1Score         float64   `json:"f1_score"`
	PerLabel        []float64 `json:"per_label_accuracy,omitempty"`
	TrainingSamples int       `json:"training_samples"`
	TestSamples     int       `json:"test_samples"`
}

// Train fits 45 logistic units with full-batch gradient descent. X rows are
// feature vectors, Y rows the multi-hot labels of the draw each row
// precedes. Rows must align.
func Train(X, Y [][]float64, cfg TrainConfig) (*Model, error) {
	if len(X) == 0 || len(X) != len(Y) {
		return nil, fmt.Errorf("training data misaligned: %d feature rows, %d label rows", len(X), len(Y))
	}
	cfg = cfg.withDefaults()
	featureCount := len(X[0])
	labelCount := len(Y[0])
	for i := range X {
		if len(X[i]) != featureCount || len(Y[i]) != labelCount {
			return nil, fmt.Errorf("ragged training row %d", i)
		}
	}

	start := time.Now()
	m := &Model{
		ModelID:      uuid.New().String(),
		Version:      time.Now().UTC().Format("20060102-150405"),
		CreatedAt:    time.Now().UTC(),
		TrendWindow:  cfg.TrendWindow,
		FeatureCount: featureCount,
		Samples:      len(X),
		Units:        make([]Unit, labelCount),
	}

	n := float64(len(X))
	grad := make([]float64, featureCount)
	for li := range m.Units {
		w := make([]float64, featureCount)
		var b float64
		for epoch := 0; epoch < cfg.Epochs; epoch++ {
			for j := range grad {
				grad[j] = 0
			}
			var gradB float64
			for i, x := range X {
				err := sigmoid(floats.Dot(w, x)+b) - Y[i][li]
				floats.AddScaled(grad, err, x)
				gradB += err
			}
			step := cfg.LearningRate / n
			if cfg.L2 > 0 {
				floats.AddScaled(grad, cfg.L2, w)
			}
			floats.AddScaled(w, -step, grad)
			b -= step * gradB
		}
		m.Units[li] = Unit{Weights: w, Bias: b}
	}

	log.Info().
		Str("model_id", m.ModelID).
		Str("version", m.Version).
		Int("samples", m.Samples).
		Int("features", featureCount).
		Dur("elapsed", time.Since(start)).
		Msg("model training complete")
	return m, nil
}

// Evaluate scores a model on a held-out set at a 0.5 decision threshold.
func Evaluate(m *Model, X, Y [][]float64) (Metrics, error) {
	if len(X) == 0 || len(X) != len(Y) {
		return Metrics{}, fmt.Errorf("evaluation data misaligned: %d feature rows, %d label rows", len(X), len(Y))
	}
	if err := m.Validate(); err != nil {
		return Metrics{}, err
	}

	labels := len(m.Units)
	correct := make([]int, labels)
	tp := make([]int, labels)
	fp := make([]int, labels)
	fn := make([]int, labels)
	var exact, wrongBits int

	for i, x := range X {
		probs, err := m.Predict(x)
		if err != nil {
			return Metrics{}, err
		}
		rowExact := true
		for li, p := range probs {
			pred := p >= 0.5
			truth := Y[i][li] >= 0.5
			switch {
			case pred && truth:
				tp[li]++
				correct[li]++
			case pred && !truth:
				fp[li]++
				wrongBits++
				rowExact = false
			case !pred && truth:
				fn[li]++
				wrongBits++
				rowExact = false
			default:
				correct[li]++
			}
		}
		if rowExact {
			exact++
		}
	}

	n := float64(len(X))
	met := Metrics{
		SubsetAccuracy: float64(exact) / n,
		HammingLoss:    float64(wrongBits) / (n * float64(labels)),
		PerLabel:       make([]float64, labels),
		TestSamples:    len(X),
	}
	met.Accuracy = 1 - met.HammingLoss
	for li, c := range correct {
		met.PerLabel[li] = float64(c) / n
	}

	// Macro averages: each label contributes equally, labels with no
	// positive predictions or observations contribute zero.
	var pSum, rSum, fSum float64
	for li := 0; li < labels; li++ {
		var p, r float64
		if tp[li]+fp[li] > 0 {
			p = float64(tp[li]) / float64(tp[li]+fp[li])
		}
		if tp[li]+fn[li] > 0 {
			r = float64(tp[li]) / float64(tp[li]+fn[li])
		}
		pSum += p
		rSum += r
		if p+r > 0 {
			fSum += 2 * p * r / (p + r)
		}
	}
	met.Precision = pSum / float64(labels)
	met.Recall = rSum / float64(labels)
	met.F1Score = fSum / float64(labels)
	return met, nil
}

// Split divides aligned rows chronologically. Older rows train, newer rows
// test, so evaluation never looks backwards into training data.
func Split(X, Y [][]float64, trainRatio float64) (trainX, trainY, testX, testY [][]float64, err error) {
	if len(X) != len(Y) {
		return nil, nil, nil, nil, fmt.Errorf("split misaligned: %d vs %d rows", len(X), len(Y))
	}
	if trainRatio <= 0 || trainRatio >= 1 {
		return nil, nil, nil, nil, fmt.Errorf("train ratio %f out of (0,1)", trainRatio)
	}
	cut := int(float64(len(X)) * trainRatio)
	if cut < 1 || cut >= len(X) {
		return nil, nil, nil, nil, fmt.Errorf("not enough rows to split: %d", len(X))
	}
	return X[:cut], Y[:cut], X[cut:], Y[cut:], nil
}
