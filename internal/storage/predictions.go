package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"lotto-engine/internal/draws"
)

// PredictionRecord captures one predicted-vs-actual outcome for a draw.
// Records are written once the actual draw is known and never mutated.
type PredictionRecord struct {
	DrawID     int       `json:"draw_id"`
	DrawDate   time.Time `json:"draw_date"`
	Predicted  []int     `json:"predicted"`
	Actual     []int     `json:"actual"`
	MatchCount int       `json:"match_count"`
	Accuracy   float64   `json:"accuracy"`
	RecordedAt time.Time `json:"recorded_at"`
}

// NewPredictionRecord computes the derived match count and accuracy for a
// predicted/actual pair. Accuracy is matchCount/6 expressed as a percentage.
func NewPredictionRecord(predicted, actual []int, drawID int, drawDate, now time.Time) PredictionRecord {
	matched := draws.MatchCount(predicted, actual)
	return PredictionRecord{
		DrawID:     drawID,
		DrawDate:   drawDate,
		Predicted:  append([]int(nil), predicted...),
		Actual:     append([]int(nil), actual...),
		MatchCount: matched,
		Accuracy:   float64(matched) / float64(draws.PickCount) * 100.0,
		RecordedAt: now,
	}
}

// PutPredictionRecord stores a prediction record. Records are append-only
// and unique by draw id; a duplicate returns ErrDuplicate.
func (s *Store) PutPredictionRecord(record PredictionRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))
		key := drawKey(record.DrawID)
		if b.Get(key) != nil {
			return fmt.Errorf("prediction for draw %d: %w", record.DrawID, ErrDuplicate)
		}

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal prediction record: %w", err)
		}
		return b.Put(key, data)
	})
}

// GetPredictionRecords returns records whose draw date falls on or after
// cutoff, newest first.
func (s *Store) GetPredictionRecords(cutoff time.Time) ([]PredictionRecord, error) {
	var records []PredictionRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()

		// Iterate backwards so the newest draws come first.
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var record PredictionRecord
			if err := json.Unmarshal(v, &record); err != nil {
				continue
			}
			if record.DrawDate.Before(cutoff) {
				continue
			}
			records = append(records, record)
		}
		return nil
	})

	return records, err
}
