package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"

	"lotto-engine/internal/common"
	"lotto-engine/internal/draws"
	"lotto-engine/internal/recommend"
	"lotto-engine/internal/storage"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// replay walks the stored draw history and predicts each draw from the
// draws strictly before it, reporting match-count distribution, average
// accuracy and prize ranks over the whole run.
func main() {
	var (
		dataPath = flag.String("data", common.DefaultDataPath, "path to data directory")
		window   = flag.Int("window", common.DefaultTrendWindow, "recent-trend window in draws")
		warmup   = flag.Int("warmup", 50, "draws to skip before predictions start")
		seed     = flag.Int64("seed", 1, "rand seed for reproducible runs")
		logLevel = flag.String("log-level", "warn", "log level: debug, info, warn, error")
	)
	flag.Parse()

	level, err := zerolog.ParseLevel(*logLevel)
	if err != nil {
		level = zerolog.WarnLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	store, err := storage.New(*dataPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *dataPath).Msg("failed to open storage")
	}
	defer store.Close()

	history, err := store.GetDraws()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load draw history")
	}
	if len(history) <= *warmup {
		log.Fatal().Int("draws", len(history)).Int("warmup", *warmup).Msg("not enough history to replay")
	}

	recommender := recommend.NewRecommender(*window, common.DefaultCandidateFactor, rand.New(rand.NewSource(*seed)))

	var (
		predictions  int
		totalMatches int
		matchDist    [draws.PickCount + 1]int
		rankCounts   [6]int
	)
	for i := *warmup; i < len(history); i++ {
		combos, err := recommender.Generate(history[:i], 1, recommend.Preferences{}, nil)
		if err != nil || len(combos) == 0 {
			log.Warn().Err(err).Int("draw", history[i].DrawNumber).Msg("prediction failed")
			continue
		}
		actual := history[i]
		res := draws.CheckWinningResult(combos[0].Numbers, actual.Numbers, actual.Bonus)
		predictions++
		totalMatches += res.Matched
		matchDist[res.Matched]++
		rankCounts[res.Rank]++
		log.Info().
			Int("draw", actual.DrawNumber).
			Ints("predicted", combos[0].Numbers).
			Ints("actual", actual.Numbers).
			Int("matched", res.Matched).
			Msg("replayed draw")
	}

	if predictions == 0 {
		log.Fatal().Msg("no predictions produced")
	}

	avgMatches := float64(totalMatches) / float64(predictions)
	accuracy := avgMatches / float64(draws.PickCount) * 100

	fmt.Printf("Replayed %d draws (warmup %d, window %d, seed %d)\n", predictions, *warmup, *window, *seed)
	fmt.Printf("Average matches: %.3f of %d (accuracy %.1f%%)\n", avgMatches, draws.PickCount, accuracy)
	fmt.Println("Match distribution:")
	for m, c := range matchDist {
		fmt.Printf("  %d matches: %5d (%.1f%%)\n", m, c, float64(c)/float64(predictions)*100)
	}
	fmt.Println("Prize ranks:")
	for rank := 1; rank <= 5; rank++ {
		fmt.Printf("  rank %d: %d\n", rank, rankCounts[rank])
	}
}
