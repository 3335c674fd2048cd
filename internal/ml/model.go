package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"lotto-engine/internal/draws"
)

var (
	ErrModelNotFound = errors.New("no trained model available")
	ErrInference     = errors.New("inference failed")
)

// Unit is one per-number logistic classifier.
type Unit struct {
	Weights []float64 `json:"weights"`
	Bias    float64   `json:"bias"`
}

// Model is an ensemble of 45 independent logistic units, one per lottery
// number, over a shared feature vector. Serialized as JSON; float64 weights
// survive the round trip bit-exactly.
type Model struct {
	ModelID      string    `json:"model_id"`
	Version      string    `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	TrendWindow  int       `json:"trend_window"`
	FeatureCount int       `json:"feature_count"`
	Samples      int       `json:"training_samples"`
	Units        []Unit    `json:"units"`
}

func (m *Model) Validate() error {
	if m == nil {
		return fmt.Errorf("model is nil")
	}
	if len(m.Units) != draws.NumberPool {
		return fmt.Errorf("model has %d units, want %d", len(m.Units), draws.NumberPool)
	}
	if m.FeatureCount <= 0 {
		return fmt.Errorf("invalid feature count %d", m.FeatureCount)
	}
	for i, u := range m.Units {
		if len(u.Weights) != m.FeatureCount {
			return fmt.Errorf("unit %d has %d weights, want %d", i+1, len(u.Weights), m.FeatureCount)
		}
	}
	return nil
}

// Predict returns the independent per-number probabilities. They do not sum
// to one; the inference engine normalizes before sampling.
func (m *Model) Predict(features []float64) ([]float64, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if len(features) != m.FeatureCount {
		return nil, fmt.Errorf("feature vector has %d values, model expects %d", len(features), m.FeatureCount)
	}
	out := make([]float64, len(m.Units))
	for i, u := range m.Units {
		out[i] = sigmoid(floats.Dot(u.Weights, features) + u.Bias)
	}
	return out, nil
}

func sigmoid(z float64) float64 {
	// Clamp avoids Exp overflow for extreme margins.
	if z > 35 {
		return 1
	}
	if z < -35 {
		return 0
	}
	return 1 / (1 + math.Exp(-z))
}

// Marshal produces the on-disk artifact bytes.
func (m *Model) Marshal() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(m, "", "  ")
}

// UnmarshalModel parses and validates an artifact.
func UnmarshalModel(data []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model artifact: %w", err)
	}
	return &m, nil
}
