// Package storage provides persistent data storage for the lottery
// recommendation engine. It uses BoltDB as the underlying storage engine to
// store the historical draw feed and per-draw prediction records.
//
// Draws are append-only and unique by draw number; prediction records are
// append-only and unique by draw id. Keys are zero-padded draw numbers so
// cursor scans iterate in draw order.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"lotto-engine/internal/draws"
)

const (
	drawsBucket       = "draws"       // Bucket for historical draw results
	predictionsBucket = "predictions" // Bucket for prediction-vs-actual records
)

// ErrDuplicate is returned when an append-only record already exists.
var ErrDuplicate = errors.New("record already exists")

// Store provides persistent storage backed by BoltDB.
type Store struct {
	db *bbolt.DB
}

// New creates a storage instance under dataPath and creates the buckets.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, "lotto-data.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(drawsBucket)); err != nil {
			return fmt.Errorf("create draws bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket)); err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func drawKey(drawNumber int) []byte {
	return []byte(fmt.Sprintf("%010d", drawNumber))
}

// PutDraw stores a new draw result. Draws are append-only: storing a draw
// number that already exists returns ErrDuplicate.
func (s *Store) PutDraw(d draws.Draw) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("invalid draw: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(drawsBucket))
		key := drawKey(d.DrawNumber)
		if b.Get(key) != nil {
			return fmt.Errorf("draw %d: %w", d.DrawNumber, ErrDuplicate)
		}

		data, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("marshal draw: %w", err)
		}
		return b.Put(key, data)
	})
}

// GetDraws returns all stored draws in ascending draw-number order.
func (s *Store) GetDraws() ([]draws.Draw, error) {
	var history []draws.Draw

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(drawsBucket))
		c := b.Cursor()

		for k, v := c.First(); k != nil; k, v = c.Next() {
			var d draws.Draw
			if err := json.Unmarshal(v, &d); err != nil {
				continue // Skip malformed records
			}
			history = append(history, d)
		}
		return nil
	})

	return history, err
}

// CountDraws returns the number of stored draws.
func (s *Store) CountDraws() (int, error) {
	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket([]byte(drawsBucket)).Stats().KeyN
		return nil
	})
	return count, err
}

// LatestDrawNumber returns the highest stored draw number, or 0 when empty.
func (s *Store) LatestDrawNumber() (int, error) {
	latest := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(drawsBucket)).Cursor()
		k, v := c.Last()
		if k == nil {
			return nil
		}
		var d draws.Draw
		if err := json.Unmarshal(v, &d); err != nil {
			return fmt.Errorf("unmarshal latest draw: %w", err)
		}
		latest = d.DrawNumber
		return nil
	})
	return latest, err
}

// GetDrawsSince returns draws with a draw number strictly greater than after,
// in ascending order.
func (s *Store) GetDrawsSince(after int) ([]draws.Draw, error) {
	var history []draws.Draw

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(drawsBucket)).Cursor()
		start := drawKey(after + 1)

		for k, v := c.Seek(start); k != nil && bytes.Compare(k, start) >= 0; k, v = c.Next() {
			var d draws.Draw
			if err := json.Unmarshal(v, &d); err != nil {
				continue
			}
			history = append(history, d)
		}
		return nil
	})

	return history, err
}
