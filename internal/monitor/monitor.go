// Package monitor tracks how served predictions fared against actual draw
// results and decides when model quality has degraded enough to force a
// retrain.
package monitor

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"lotto-engine/internal/draws"
	"lotto-engine/internal/storage"
)

// Health classifies rolling accuracy.
type Health string

const (
	HealthGood     Health = "GOOD"
	HealthWarning  Health = "WARNING"
	HealthCritical Health = "CRITICAL"
)

const (
	warningThreshold  = 70.0
	criticalThreshold = 50.0

	// Emergency trigger 2: this many of the most recent predictions had at
	// most failureMatchThreshold matches.
	emergencyRecentCount  = 10
	emergencyFailureCount = 8
	failureMatchThreshold = 1
)

// RecordSource persists prediction outcome records.
type RecordSource interface {
	PutPredictionRecord(storage.PredictionRecord) error
	GetPredictionRecords(cutoff time.Time) ([]storage.PredictionRecord, error)
}

// MetricsSink is the monitoring instrumentation surface.
type MetricsSink interface {
	RollingAccuracySet(pct float64)
	PredictionRecordsInc()
}

// TrendPoint is one day's averaged accuracy.
type TrendPoint struct {
	Date     string  `json:"date"`
	Accuracy float64 `json:"accuracy"`
}

// Status is the full monitoring snapshot.
type Status struct {
	Accuracy         *float64  `json:"accuracy"`
	Health           Health    `json:"status"`
	RecordCount      int       `json:"records_count"`
	LastUpdate       time.Time `json:"last_update"`
	EmergencyRetrain bool      `json:"emergency_retrain"`
}

// Tracker evaluates prediction records over a rolling window of days.
type Tracker struct {
	store   RecordSource
	days    int
	metrics MetricsSink
	now     func() time.Time
}

func NewTracker(store RecordSource, days int, metrics MetricsSink) *Tracker {
	if days <= 0 {
		days = 28
	}
	return &Tracker{store: store, days: days, metrics: metrics, now: time.Now}
}

// Record evaluates a prediction against the actual draw and persists the
// outcome.
func (t *Tracker) Record(predicted, actual []int, drawID int, drawDate time.Time) (storage.PredictionRecord, error) {
	if err := draws.ValidateNumbers(actual); err != nil {
		return storage.PredictionRecord{}, fmt.Errorf("actual numbers: %w", err)
	}
	if err := draws.ValidateNumbers(predicted); err != nil {
		return storage.PredictionRecord{}, fmt.Errorf("predicted numbers: %w", err)
	}
	rec := storage.NewPredictionRecord(predicted, actual, drawID, drawDate, t.now().UTC())
	if err := t.store.PutPredictionRecord(rec); err != nil {
		return storage.PredictionRecord{}, err
	}
	if t.metrics != nil {
		t.metrics.PredictionRecordsInc()
	}
	log.Info().
		Int("draw_id", drawID).
		Int("matches", rec.MatchCount).
		Float64("accuracy", rec.Accuracy).
		Msg("prediction outcome recorded")
	return rec, nil
}

// Accuracy returns the average accuracy percentage over the window. The
// second return is false when no records exist; zero accuracy from real
// records and absence of data are different states.
func (t *Tracker) Accuracy() (float64, bool, error) {
	records, err := t.recent()
	if err != nil {
		return 0, false, err
	}
	if len(records) == 0 {
		return 0, false, nil
	}
	var totalMatches int
	for _, r := range records {
		totalMatches += r.MatchCount
	}
	avg := float64(totalMatches) / float64(len(records))
	pct := avg / float64(draws.PickCount) * 100.0
	if t.metrics != nil {
		t.metrics.RollingAccuracySet(pct)
	}
	return pct, true, nil
}

// Health maps rolling accuracy onto the three-state scale. With no data
// there is no evidence of a problem, so the state is GOOD.
func (t *Tracker) Health() (Health, error) {
	pct, ok, err := t.Accuracy()
	if err != nil {
		return "", err
	}
	if !ok {
		return HealthGood, nil
	}
	switch {
	case pct >= warningThreshold:
		return HealthGood, nil
	case pct >= criticalThreshold:
		return HealthWarning, nil
	default:
		return HealthCritical, nil
	}
}

// ShouldEmergencyRetrain fires when accuracy crosses the critical threshold
// or when nearly all recent predictions were effectively misses.
func (t *Tracker) ShouldEmergencyRetrain() (bool, error) {
	pct, ok, err := t.Accuracy()
	if err != nil {
		return false, err
	}
	if ok && pct < criticalThreshold {
		return true, nil
	}

	records, err := t.recent()
	if err != nil {
		return false, err
	}
	if len(records) < emergencyRecentCount {
		return false, nil
	}
	failures := 0
	for _, r := range records[:emergencyRecentCount] {
		if r.MatchCount <= failureMatchThreshold {
			failures++
		}
	}
	return failures >= emergencyFailureCount, nil
}

// Trend returns per-day averaged accuracy, newest day first.
func (t *Tracker) Trend() ([]TrendPoint, error) {
	records, err := t.recent()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	byDay := map[string][]float64{}
	for _, r := range records {
		day := r.DrawDate.UTC().Format("2006-01-02")
		byDay[day] = append(byDay[day], r.Accuracy)
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	trend := make([]TrendPoint, 0, len(days))
	for _, day := range days {
		var sum float64
		for _, a := range byDay[day] {
			sum += a
		}
		trend = append(trend, TrendPoint{Date: day, Accuracy: sum / float64(len(byDay[day]))})
	}
	return trend, nil
}

// GetStatus assembles the full monitoring snapshot.
func (t *Tracker) GetStatus() (Status, error) {
	pct, ok, err := t.Accuracy()
	if err != nil {
		return Status{}, err
	}
	health, err := t.Health()
	if err != nil {
		return Status{}, err
	}
	emergency, err := t.ShouldEmergencyRetrain()
	if err != nil {
		return Status{}, err
	}
	records, err := t.recent()
	if err != nil {
		return Status{}, err
	}

	st := Status{
		Health:           health,
		RecordCount:      len(records),
		EmergencyRetrain: emergency,
		LastUpdate:       t.now().UTC(),
	}
	if ok {
		st.Accuracy = &pct
	}
	if len(records) > 0 {
		st.LastUpdate = records[0].RecordedAt
	}
	return st, nil
}

func (t *Tracker) recent() ([]storage.PredictionRecord, error) {
	cutoff := t.now().UTC().AddDate(0, 0, -t.days)
	return t.store.GetPredictionRecords(cutoff)
}
