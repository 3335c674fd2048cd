package common

// Environment variable keys
const (
	EnvConfigFile      = "CONFIG_FILE"
	EnvDataPath        = "DATA_PATH"
	EnvModelDir        = "MODEL_DIR"
	EnvFeedBaseURL     = "FEED_BASE_URL"
	EnvFeedWsURL       = "FEED_WS_URL"
	EnvMetricsPort     = "METRICS_PORT"
	EnvTrendWindow     = "TREND_WINDOW"
	EnvMonitoringDays  = "MONITORING_DAYS"
	EnvMinTrainDraws   = "MIN_TRAIN_DRAWS"
	EnvRetrainInterval = "RETRAIN_INTERVAL"
	EnvTrainEpochs     = "TRAIN_EPOCHS"
	EnvUseModel        = "USE_MODEL"
	EnvRESTTimeout     = "REST_TIMEOUT"
	EnvPingInterval    = "PING_INTERVAL"
	EnvCandidateFactor = "CANDIDATE_FACTOR"
	EnvStaleRunningTTL = "STALE_RUNNING_TTL"
)

// Configuration defaults
const (
	DefaultDataPath        = "data"
	DefaultModelDir        = "models"
	DefaultMetricsPort     = 8080
	DefaultTrendWindow     = 20
	DefaultMonitoringDays  = 28
	DefaultMinTrainDraws   = 500
	DefaultTrainEpochs     = 200
	DefaultCandidateFactor = 10
)

// Validation limits
const (
	MinMetricsPort    = 1024
	MaxMetricsPort    = 65535
	MinTrendWindow    = 5
	MaxTrendWindow    = 200
	MaxMonitoringDays = 365
	MaxIncludeNumbers = 5
	MaxExcludeNumbers = 10
)
