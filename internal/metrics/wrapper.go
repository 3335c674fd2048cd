package metrics

// MetricsWrapper adapts the prometheus collectors to the small tracker
// interfaces consumed by the recommendation, ML and monitoring packages,
// avoiding circular imports.
type MetricsWrapper struct {
	m *Metrics
}

func NewWrapper(m *Metrics) *MetricsWrapper {
	return &MetricsWrapper{m: m}
}

func (w *MetricsWrapper) RecommendationsInc(n int) {
	w.m.RecommendationsTotal.Add(float64(n))
}

func (w *MetricsWrapper) GenerateDurationObserve(seconds float64) {
	w.m.GenerateDuration.Observe(seconds)
}

func (w *MetricsWrapper) ConfidenceObserve(score float64) {
	w.m.ConfidenceScores.Observe(score)
}

func (w *MetricsWrapper) StatisticalServedInc() {
	w.m.StatisticalServed.Inc()
}

func (w *MetricsWrapper) ModelServedInc() {
	w.m.ModelServed.Inc()
}

func (w *MetricsWrapper) MLPredictionsInc() {
	w.m.MLPredictions.Inc()
}

func (w *MetricsWrapper) MLFailuresInc() {
	w.m.MLFailures.Inc()
}

func (w *MetricsWrapper) MLFallbackUseInc() {
	w.m.MLFallbackUse.Inc()
}

func (w *MetricsWrapper) MLModelAgeSet(seconds float64) {
	w.m.MLModelAge.Set(seconds)
}

func (w *MetricsWrapper) TrainingRunsInc() {
	w.m.TrainingRuns.Inc()
}

func (w *MetricsWrapper) TrainingFailuresInc() {
	w.m.TrainingFailures.Inc()
}

func (w *MetricsWrapper) TrainingDurationObserve(seconds float64) {
	w.m.TrainingDuration.Observe(seconds)
}

func (w *MetricsWrapper) TrainingAccuracySet(accuracy float64) {
	w.m.TrainingAccuracy.Set(accuracy)
}

func (w *MetricsWrapper) RollingAccuracySet(percent float64) {
	w.m.RollingAccuracy.Set(percent)
}

func (w *MetricsWrapper) PredictionRecordsInc() {
	w.m.PredictionRecords.Inc()
}

func (w *MetricsWrapper) DrawsIngestedInc() {
	w.m.DrawsIngested.Inc()
}

func (w *MetricsWrapper) FeedErrorsInc() {
	w.m.FeedErrors.Inc()
}

func (w *MetricsWrapper) ErrorsInc() {
	w.m.ErrorsTotal.Inc()
}
