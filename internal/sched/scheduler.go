// Package sched owns the retraining lifecycle: a periodic schedule plus
// manual triggers, a persisted metadata record describing the last run, and
// the full load-validate-train-evaluate-save cycle. A failed cycle leaves
// the previously active model untouched.
package sched

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"lotto-engine/internal/draws"
	"lotto-engine/internal/features"
	"lotto-engine/internal/ml"
)

// ErrInsufficientData rejects retraining before enough history exists.
var ErrInsufficientData = errors.New("insufficient training data")

// Retraining status values persisted in metadata.
const (
	StatusNeverTrained = "never_trained"
	StatusRunning      = "running"
	StatusSuccess      = "success"
	StatusFailed       = "failed"
)

const trainRatio = 0.8

// Metadata is the persisted record of the most recent retraining attempt.
type Metadata struct {
	LastRetrainTime *time.Time `json:"last_retrain_time"`
	Status          string     `json:"status"`
	ErrorMessage    string     `json:"error_message,omitempty"`
	ModelVersion    string     `json:"model_version,omitempty"`
	Accuracy        *float64   `json:"accuracy,omitempty"`
	TrainingSamples int        `json:"training_samples"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DrawSource yields the full ordered draw history.
type DrawSource interface {
	GetDraws() ([]draws.Draw, error)
}

// MetricsSink is the training instrumentation surface.
type MetricsSink interface {
	TrainingRunsInc()
	TrainingFailuresInc()
	TrainingDurationObserve(seconds float64)
	TrainingAccuracySet(accuracy float64)
}

// Config bounds a Scheduler.
type Config struct {
	MetadataDir string
	MinDraws    int
	Epochs      int
	TrendWindow int
	Interval    time.Duration
	StaleTTL    time.Duration
}

// Scheduler runs retraining cycles. Retrain is safe for concurrent callers:
// a second trigger while a cycle runs is refused, not queued.
type Scheduler struct {
	source    DrawSource
	extractor *features.Extractor
	artifacts *ml.ArtifactStore
	metrics   MetricsSink
	cfg       Config

	metadataFile string
	trigger      chan chan bool
	onSuccess    func()
}

func New(source DrawSource, extractor *features.Extractor, artifacts *ml.ArtifactStore, metrics MetricsSink, cfg Config) (*Scheduler, error) {
	if cfg.MinDraws <= 0 {
		cfg.MinDraws = 500
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 7 * 24 * time.Hour
	}
	if cfg.StaleTTL <= 0 {
		cfg.StaleTTL = 6 * time.Hour
	}
	if err := os.MkdirAll(cfg.MetadataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create metadata dir: %w", err)
	}

	s := &Scheduler{
		source:       source,
		extractor:    extractor,
		artifacts:    artifacts,
		metrics:      metrics,
		cfg:          cfg,
		metadataFile: filepath.Join(cfg.MetadataDir, "retrain_metadata.json"),
		trigger:      make(chan chan bool),
	}
	s.recoverStaleRun()
	return s, nil
}

// OnSuccess registers a callback invoked after every successful cycle,
// typically to make serving paths pick up the new model.
func (s *Scheduler) OnSuccess(fn func()) { s.onSuccess = fn }

// recoverStaleRun rewrites a RUNNING status left behind by a crashed
// process so later triggers are not locked out forever.
func (s *Scheduler) recoverStaleRun() {
	meta := s.Status()
	if meta.Status != StatusRunning {
		return
	}
	if time.Since(meta.UpdatedAt) < s.cfg.StaleTTL {
		return
	}
	meta.Status = StatusFailed
	meta.ErrorMessage = "previous run abandoned, no completion recorded"
	meta.UpdatedAt = time.Now().UTC()
	if err := s.saveMetadata(meta); err != nil {
		log.Error().Err(err).Msg("failed to reset stale retraining status")
		return
	}
	log.Warn().Time("started", meta.UpdatedAt).Msg("reset stale running retraining status to failed")
}

// Status reads the persisted metadata. A missing or corrupt file reads as
// never trained.
func (s *Scheduler) Status() Metadata {
	data, err := os.ReadFile(s.metadataFile)
	if err != nil {
		return Metadata{Status: StatusNeverTrained}
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		log.Warn().Err(err).Msg("corrupt retrain metadata, treating as never trained")
		return Metadata{Status: StatusNeverTrained}
	}
	return meta
}

// Retrain runs one full cycle. Returns false without error when another
// cycle is already running.
func (s *Scheduler) Retrain() (bool, error) {
	meta := s.Status()
	if meta.Status == StatusRunning {
		log.Warn().Msg("retraining already in progress, skipping trigger")
		return false, nil
	}

	start := time.Now()
	meta.Status = StatusRunning
	meta.ErrorMessage = ""
	meta.UpdatedAt = start.UTC()
	if err := s.saveMetadata(meta); err != nil {
		return false, err
	}
	if s.metrics != nil {
		s.metrics.TrainingRunsInc()
	}

	version, metrics, err := s.cycle()
	if s.metrics != nil {
		s.metrics.TrainingDurationObserve(time.Since(start).Seconds())
	}
	if err != nil {
		s.markFailure(err)
		return false, err
	}

	now := time.Now().UTC()
	meta = Metadata{
		LastRetrainTime: &now,
		Status:          StatusSuccess,
		ModelVersion:    version,
		Accuracy:        &metrics.Accuracy,
		TrainingSamples: metrics.TrainingSamples,
		UpdatedAt:       now,
	}
	if err := s.saveMetadata(meta); err != nil {
		return false, err
	}
	if s.metrics != nil {
		s.metrics.TrainingAccuracySet(metrics.Accuracy)
	}
	if s.onSuccess != nil {
		s.onSuccess()
	}
	log.Info().
		Str("model_version", version).
		Float64("accuracy", metrics.Accuracy).
		Int("samples", metrics.TrainingSamples).
		Msg("retraining cycle complete")
	return true, nil
}

func (s *Scheduler) cycle() (string, ml.Metrics, error) {
	history, err := s.source.GetDraws()
	if err != nil {
		return "", ml.Metrics{}, fmt.Errorf("load draw history: %w", err)
	}
	log.Info().Int("draws", len(history)).Msg("starting retraining cycle")

	if len(history) < s.cfg.MinDraws {
		return "", ml.Metrics{}, fmt.Errorf("%w: %d draws, minimum %d required", ErrInsufficientData, len(history), s.cfg.MinDraws)
	}
	if err := ValidateQuality(history); err != nil {
		return "", ml.Metrics{}, fmt.Errorf("data quality: %w", err)
	}

	X, Y, err := s.extractor.Dataset(history)
	if err != nil {
		return "", ml.Metrics{}, fmt.Errorf("feature extraction: %w", err)
	}
	trainX, trainY, testX, testY, err := ml.Split(X, Y, trainRatio)
	if err != nil {
		return "", ml.Metrics{}, err
	}

	model, err := ml.Train(trainX, trainY, ml.TrainConfig{
		Epochs:      s.cfg.Epochs,
		TrendWindow: s.cfg.TrendWindow,
	})
	if err != nil {
		return "", ml.Metrics{}, fmt.Errorf("training: %w", err)
	}

	metrics, err := ml.Evaluate(model, testX, testY)
	if err != nil {
		return "", ml.Metrics{}, fmt.Errorf("evaluation: %w", err)
	}
	metrics.TrainingSamples = len(trainX)

	if _, err := s.artifacts.Save(model, metrics); err != nil {
		return "", ml.Metrics{}, fmt.Errorf("save model: %w", err)
	}
	return model.Version, metrics, nil
}

func (s *Scheduler) markFailure(cause error) {
	if s.metrics != nil {
		s.metrics.TrainingFailuresInc()
	}
	meta := s.Status()
	meta.Status = StatusFailed
	meta.ErrorMessage = cause.Error()
	meta.UpdatedAt = time.Now().UTC()
	if err := s.saveMetadata(meta); err != nil {
		log.Error().Err(err).Msg("failed to persist retraining failure")
	}
	log.Error().Err(cause).Msg("retraining cycle failed, previous model stays active")
}

func (s *Scheduler) saveMetadata(meta Metadata) error {
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("encode retrain metadata: %w", err)
	}
	tmp := s.metadataFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write retrain metadata: %w", err)
	}
	return os.Rename(tmp, s.metadataFile)
}

// TriggerRetrain asks the run loop to retrain now. Returns false when the
// loop is not running or the cycle was refused.
func (s *Scheduler) TriggerRetrain(ctx context.Context) bool {
	reply := make(chan bool, 1)
	select {
	case s.trigger <- reply:
	case <-ctx.Done():
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-ctx.Done():
		return false
	}
}

// Run drives the periodic schedule until the context ends. Manual triggers
// via TriggerRetrain share the same loop so cycles never overlap.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	log.Info().Dur("interval", s.cfg.Interval).Msg("retraining scheduler started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("retraining scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.Retrain(); err != nil && !errors.Is(err, ErrInsufficientData) {
				log.Error().Err(err).Msg("scheduled retraining failed")
			}
		case reply := <-s.trigger:
			ok, err := s.Retrain()
			if err != nil {
				log.Error().Err(err).Msg("manual retraining failed")
			}
			reply <- ok && err == nil
		}
	}
}

// ValidateQuality rejects histories with structural defects before any
// training work starts: invalid draws, duplicate draw numbers, or
// out-of-order rows.
func ValidateQuality(history []draws.Draw) error {
	seen := make(map[int]bool, len(history))
	prev := 0
	for _, d := range history {
		if err := d.Validate(); err != nil {
			return err
		}
		if seen[d.DrawNumber] {
			return fmt.Errorf("duplicate draw number %d", d.DrawNumber)
		}
		seen[d.DrawNumber] = true
		if d.DrawNumber < prev {
			return fmt.Errorf("draw %d out of order", d.DrawNumber)
		}
		prev = d.DrawNumber
	}
	return nil
}
