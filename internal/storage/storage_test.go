package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"lotto-engine/internal/draws"
)

func testDraw(num int, numbers []int) draws.Draw {
	bonus := 45
	for _, n := range numbers {
		if n == bonus {
			bonus = 44
		}
	}
	return draws.Draw{
		DrawNumber: num,
		DrawDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 7*num),
		Numbers:    numbers,
		Bonus:      bonus,
	}
}

func TestNew(t *testing.T) {
	tempDir := t.TempDir()

	store, err := New(tempDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	dbPath := filepath.Join(tempDir, "lotto-data.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNew_InvalidPath(t *testing.T) {
	if _, err := New("/nonexistent/path/for/sure"); err == nil {
		t.Error("Expected error for invalid path, got nil")
	}
}

func TestPutDraw_RoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	d1 := testDraw(2, []int{1, 5, 12, 23, 34, 42})
	d2 := testDraw(1, []int{3, 8, 17, 24, 31, 40})
	if err := store.PutDraw(d1); err != nil {
		t.Fatalf("PutDraw: %v", err)
	}
	if err := store.PutDraw(d2); err != nil {
		t.Fatalf("PutDraw: %v", err)
	}

	history, err := store.GetDraws()
	if err != nil {
		t.Fatalf("GetDraws: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 draws, got %d", len(history))
	}
	// Ascending draw-number order regardless of insertion order
	if history[0].DrawNumber != 1 || history[1].DrawNumber != 2 {
		t.Errorf("draws not ordered: %d, %d", history[0].DrawNumber, history[1].DrawNumber)
	}

	latest, err := store.LatestDrawNumber()
	if err != nil {
		t.Fatal(err)
	}
	if latest != 2 {
		t.Errorf("expected latest draw 2, got %d", latest)
	}

	count, err := store.CountDraws()
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("expected count 2, got %d", count)
	}
}

func TestPutDraw_Duplicate(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	d := testDraw(7, []int{1, 5, 12, 23, 34, 42})
	if err := store.PutDraw(d); err != nil {
		t.Fatal(err)
	}
	err = store.PutDraw(d)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}
}

func TestPutDraw_Invalid(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	bad := testDraw(1, []int{1, 1, 12, 23, 34, 42})
	if err := store.PutDraw(bad); err == nil {
		t.Error("expected validation error for duplicate numbers")
	}
}

func TestGetDrawsSince(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	for i := 1; i <= 5; i++ {
		if err := store.PutDraw(testDraw(i, []int{2, 9, 16, 25, 33, 41})); err != nil {
			t.Fatal(err)
		}
	}

	since, err := store.GetDrawsSince(3)
	if err != nil {
		t.Fatal(err)
	}
	if len(since) != 2 {
		t.Fatalf("expected 2 draws after 3, got %d", len(since))
	}
	if since[0].DrawNumber != 4 || since[1].DrawNumber != 5 {
		t.Errorf("unexpected draws: %+v", since)
	}
}

func TestPredictionRecords(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	now := time.Now().UTC()
	rec := NewPredictionRecord(
		[]int{1, 2, 3, 4, 5, 6},
		[]int{4, 5, 6, 7, 8, 9},
		1101,
		now.AddDate(0, 0, -1),
		now,
	)
	if rec.MatchCount != 3 {
		t.Fatalf("expected 3 matches, got %d", rec.MatchCount)
	}
	if rec.Accuracy != 50.0 {
		t.Fatalf("expected accuracy 50.0, got %f", rec.Accuracy)
	}

	if err := store.PutPredictionRecord(rec); err != nil {
		t.Fatalf("PutPredictionRecord: %v", err)
	}
	err = store.PutPredictionRecord(rec)
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for same draw id, got %v", err)
	}

	old := NewPredictionRecord(
		[]int{1, 2, 3, 4, 5, 6},
		[]int{1, 2, 3, 4, 5, 6},
		1050,
		now.AddDate(0, 0, -60),
		now,
	)
	if err := store.PutPredictionRecord(old); err != nil {
		t.Fatal(err)
	}

	records, err := store.GetPredictionRecords(now.AddDate(0, 0, -28))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record in window, got %d", len(records))
	}
	if records[0].DrawID != 1101 {
		t.Errorf("unexpected record: %+v", records[0])
	}
}
