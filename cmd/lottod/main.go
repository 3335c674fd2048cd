package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"lotto-engine/internal/cfg"
	"lotto-engine/internal/features"
	"lotto-engine/internal/feed"
	"lotto-engine/internal/metrics"
	"lotto-engine/internal/ml"
	"lotto-engine/internal/monitor"
	"lotto-engine/internal/recommend"
	"lotto-engine/internal/sched"
	"lotto-engine/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg(".env load failed")
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.New()
	mw := metrics.NewWrapper(m)

	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", c.DataPath).Msg("storage initialization failed")
	}
	defer store.Close()

	artifacts, err := ml.NewArtifactStore(c.ModelDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", c.ModelDir).Msg("model store initialization failed")
	}

	extractor := features.NewExtractor(c.TrendWindow)
	recommender := recommend.NewRecommender(c.TrendWindow, c.CandidateFactor, nil)
	orchestrator := recommend.NewOrchestrator(store, artifacts, ml.NewEngine(nil), recommender, extractor, mw, c.UseModel)
	tracker := monitor.NewTracker(store, c.MonitoringDays, mw)

	scheduler, err := sched.New(store, extractor, artifacts, mw, sched.Config{
		MetadataDir: c.ModelDir,
		MinDraws:    c.MinTrainDraws,
		Epochs:      c.TrainEpochs,
		TrendWindow: c.TrendWindow,
		Interval:    c.RetrainInterval,
		StaleTTL:    c.StaleRunningTTL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler initialization failed")
	}
	scheduler.OnSuccess(orchestrator.ReloadModel)

	var wg sync.WaitGroup

	startHTTPServer(ctx, c, m, orchestrator, tracker, scheduler)

	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()

	if c.FeedBaseURL != "" {
		if n, err := feed.NewClient(c.FeedBaseURL, c.RESTTimeout).Backfill(ctx, store); err != nil {
			log.Warn().Err(err).Msg("draw backfill failed, continuing with stored history")
			mw.FeedErrorsInc()
		} else {
			for i := 0; i < n; i++ {
				mw.DrawsIngestedInc()
			}
		}
	}
	if c.FeedWsURL != "" {
		startDrawFeed(ctx, &wg, c, store, orchestrator, tracker, scheduler, mw)
	}

	waitForShutdown(ctx, cancel, &wg)
}

// startDrawFeed consumes live draw announcements: each new result is
// persisted, scored against a fresh prediction for the following draw, and
// checked for emergency retraining.
func startDrawFeed(ctx context.Context, wg *sync.WaitGroup, c cfg.Settings, store *storage.Store, orchestrator *recommend.Orchestrator, tracker *monitor.Tracker, scheduler *sched.Scheduler, mw *metrics.MetricsWrapper) {
	announcements := make(chan feed.Announcement, 16)
	errs := make(chan error, 16)
	sub := feed.NewSubscriber(c.FeedWsURL)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := sub.Stream(ctx, announcements, errs, c.Ping); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("draw feed stream ended")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		// Per run we remember the last served prediction and grade it
		// when its draw result arrives.
		var pending []int
		for {
			select {
			case <-ctx.Done():
				return
			case err := <-errs:
				mw.FeedErrorsInc()
				log.Debug().Err(err).Msg("draw feed error")
			case ann := <-announcements:
				d, err := ann.Draw()
				if err != nil {
					mw.FeedErrorsInc()
					continue
				}
				if err := store.PutDraw(d); err != nil && !errors.Is(err, storage.ErrDuplicate) {
					log.Error().Err(err).Int("draw", d.DrawNumber).Msg("failed to persist draw")
					continue
				}
				mw.DrawsIngestedInc()
				log.Info().Int("draw", d.DrawNumber).Ints("numbers", d.Numbers).Msg("draw result ingested")

				if pending != nil {
					if _, err := tracker.Record(pending, d.Numbers, d.DrawNumber, d.DrawDate); err != nil {
						log.Warn().Err(err).Msg("failed to record prediction outcome")
					}
					if fire, err := tracker.ShouldEmergencyRetrain(); err == nil && fire {
						log.Warn().Msg("accuracy degraded, triggering emergency retrain")
						go scheduler.TriggerRetrain(ctx)
					}
				}

				res, err := orchestrator.Recommend(1, recommend.Preferences{})
				if err != nil || len(res.Combinations) == 0 {
					log.Warn().Err(err).Msg("failed to stage prediction for next draw")
					pending = nil
					continue
				}
				pending = res.Combinations[0].Numbers
			}
		}
	}()
}

// startHTTPServer serves /metrics, /health and the recommendation API.
func startHTTPServer(ctx context.Context, c cfg.Settings, m *metrics.Metrics, orchestrator *recommend.Orchestrator, tracker *monitor.Tracker, scheduler *sched.Scheduler) {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/api/v1/recommendations", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Count       int                   `json:"count"`
			Preferences recommend.Preferences `json:"preferences"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request body", http.StatusBadRequest)
			return
		}
		if req.Count <= 0 {
			req.Count = 5
		}
		res, err := orchestrator.Recommend(req.Count, req.Preferences)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, recommend.ErrValidation) {
				status = http.StatusBadRequest
			}
			http.Error(w, err.Error(), status)
			return
		}
		writeJSON(w, res)
	})

	mux.HandleFunc("/api/v1/monitor/status", func(w http.ResponseWriter, r *http.Request) {
		st, err := tracker.GetStatus()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, st)
	})

	mux.HandleFunc("/api/v1/monitor/trend", func(w http.ResponseWriter, r *http.Request) {
		trend, err := tracker.Trend()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, trend)
	})

	mux.HandleFunc("/api/v1/training/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, scheduler.Status())
	})

	mux.HandleFunc("/api/v1/training/trigger", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		started := scheduler.TriggerRetrain(r.Context())
		writeJSON(w, map[string]bool{"started": started})
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", c.MetricsPort),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info().Int("port", c.MetricsPort).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("http server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("response encode failed")
	}
}

func waitForShutdown(ctx context.Context, cancel context.CancelFunc, wg *sync.WaitGroup) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case <-ctx.Done():
	}
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info().Msg("shutdown complete")
	case <-time.After(10 * time.Second):
		log.Warn().Msg("shutdown timed out, exiting")
	}
}
