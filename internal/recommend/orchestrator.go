package recommend

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"lotto-engine/internal/draws"
	"lotto-engine/internal/features"
	"lotto-engine/internal/ml"
)

// Mode reports which path produced a recommendation.
type Mode string

const (
	ModeStatistical     Mode = "STATISTICAL_MODE"
	ModeMLUninitialized Mode = "ML_MODE_UNINITIALIZED"
	ModeMLReady         Mode = "ML_MODE_READY"
	ModeMLFallback      Mode = "ML_MODE_FALLBACK"
)

// DrawSource yields the full ordered draw history.
type DrawSource interface {
	GetDraws() ([]draws.Draw, error)
}

// MetricsSink is the slice of instrumentation the orchestrator emits.
type MetricsSink interface {
	RecommendationsInc(n int)
	GenerateDurationObserve(seconds float64)
	ConfidenceObserve(score float64)
	StatisticalServedInc()
	ModelServedInc()
	MLPredictionsInc()
	MLFailuresInc()
	MLFallbackUseInc()
	MLModelAgeSet(seconds float64)
}

// Result is one served recommendation set.
type Result struct {
	Combinations []draws.Combination `json:"combinations"`
	Mode         Mode                `json:"mode"`
	ModelVersion string              `json:"model_version,omitempty"`
	Confidence   *ml.Confidence      `json:"ml_confidence,omitempty"`
	GeneratedAt  time.Time           `json:"generated_at"`
}

// Orchestrator routes recommendation requests to the model path when a
// trained model is available and configured, and degrades to the
// statistical path otherwise. Model-path errors never surface to callers;
// they downgrade the response to the fallback mode.
type Orchestrator struct {
	source    DrawSource
	artifacts *ml.ArtifactStore
	engine    *ml.Engine
	rec       *Recommender
	extractor *features.Extractor
	metrics   MetricsSink
	useModel  bool

	mu           sync.Mutex
	model        *ml.Model
	modelVersion ml.ModelVersion
}

func NewOrchestrator(source DrawSource, artifacts *ml.ArtifactStore, engine *ml.Engine, rec *Recommender, extractor *features.Extractor, metrics MetricsSink, useModel bool) *Orchestrator {
	return &Orchestrator{
		source:    source,
		artifacts: artifacts,
		engine:    engine,
		rec:       rec,
		extractor: extractor,
		metrics:   metrics,
		useModel:  useModel,
	}
}

// Recommend serves count combinations honoring the given preferences.
func (o *Orchestrator) Recommend(count int, prefs Preferences) (Result, error) {
	start := time.Now()
	if err := prefs.Validate(); err != nil {
		return Result{}, err
	}

	history, err := o.source.GetDraws()
	if err != nil {
		return Result{}, err
	}

	var res Result
	if !o.useModel {
		res, err = o.statistical(history, count, prefs, ModeStatistical)
	} else {
		res, err = o.modelPath(history, count, prefs)
	}
	if err != nil {
		return Result{}, err
	}

	res.GeneratedAt = time.Now().UTC()
	if o.metrics != nil {
		o.metrics.RecommendationsInc(len(res.Combinations))
		o.metrics.GenerateDurationObserve(time.Since(start).Seconds())
		for _, c := range res.Combinations {
			o.metrics.ConfidenceObserve(c.ConfidenceScore)
		}
	}
	return res, nil
}

// Mode reports the path the next request would take.
func (o *Orchestrator) Mode() Mode {
	if !o.useModel {
		return ModeStatistical
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.loadModelLocked() != nil || o.model == nil {
		return ModeMLUninitialized
	}
	return ModeMLReady
}

// ReloadModel drops the cached model so the next request picks up a newly
// trained artifact.
func (o *Orchestrator) ReloadModel() {
	o.mu.Lock()
	o.model = nil
	o.mu.Unlock()
}

func (o *Orchestrator) modelPath(history []draws.Draw, count int, prefs Preferences) (Result, error) {
	o.mu.Lock()
	loadErr := o.loadModelLocked()
	model := o.model
	version := o.modelVersion
	o.mu.Unlock()

	if loadErr != nil || model == nil {
		return o.statistical(history, count, prefs, ModeMLFallback)
	}
	if o.metrics != nil {
		o.metrics.MLModelAgeSet(time.Since(version.CreatedAt).Seconds())
	}

	res, err := o.predict(model, version, history, count, prefs)
	if err != nil {
		log.Warn().Err(err).Str("model_version", version.Version).Msg("model path failed, serving statistical fallback")
		if o.metrics != nil {
			o.metrics.MLFailuresInc()
			o.metrics.MLFallbackUseInc()
		}
		return o.statistical(history, count, prefs, ModeMLFallback)
	}
	return res, nil
}

func (o *Orchestrator) predict(model *ml.Model, version ml.ModelVersion, history []draws.Draw, count int, prefs Preferences) (Result, error) {
	feats := o.extractor.Extract(history)
	probs, err := o.engine.PredictProbabilities(model, feats)
	if err != nil {
		return Result{}, err
	}
	if o.metrics != nil {
		o.metrics.MLPredictionsInc()
	}

	combos, err := o.engine.GenerateCombinations(probs, count)
	if err != nil {
		return Result{}, err
	}
	filtered := ml.ApplyPreferences(combos, prefs.Include, prefs.Exclude)

	conf := o.engine.ConfidenceScores(probs)
	result := Result{
		Mode:         ModeMLReady,
		ModelVersion: version.Version,
		Confidence:   &conf,
	}
	for _, numbers := range filtered {
		an := o.rec.Analyzer().AnalyzeCombination(numbers, history)
		result.Combinations = append(result.Combinations, draws.Combination{
			Numbers:         numbers,
			ConfidenceScore: conf.Overall,
			Analysis:        &an,
		})
	}

	// Preference filtering can thin the set below count; top up from the
	// statistical path without repeating served combinations.
	if missing := count - len(result.Combinations); missing > 0 {
		served := make([][]int, 0, len(result.Combinations))
		for _, c := range result.Combinations {
			served = append(served, c.Numbers)
		}
		extra, err := o.rec.Generate(history, missing, prefs, served)
		if err != nil {
			return Result{}, err
		}
		result.Combinations = append(result.Combinations, extra...)
	}
	if o.metrics != nil {
		o.metrics.ModelServedInc()
	}
	return result, nil
}

func (o *Orchestrator) statistical(history []draws.Draw, count int, prefs Preferences, mode Mode) (Result, error) {
	combos, err := o.rec.Generate(history, count, prefs, nil)
	if err != nil {
		return Result{}, err
	}
	if o.metrics != nil {
		o.metrics.StatisticalServedInc()
	}
	return Result{Combinations: combos, Mode: mode}, nil
}

// loadModelLocked loads the active artifact when no model is cached. Only a
// successful load is cached; a miss is retried on the next request so a
// model trained out of process gets picked up without an explicit reload.
func (o *Orchestrator) loadModelLocked() error {
	if o.model != nil {
		return nil
	}
	if o.artifacts == nil {
		return ml.ErrModelNotFound
	}
	model, version, err := o.artifacts.LoadActive()
	if err != nil {
		if err != ml.ErrModelNotFound {
			log.Warn().Err(err).Msg("failed to load active model")
		}
		return err
	}
	o.model = model
	o.modelVersion = version
	log.Info().Str("model_version", version.Version).Msg("active model loaded")
	return nil
}
