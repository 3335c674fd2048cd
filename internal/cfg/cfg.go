package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"lotto-engine/internal/common"
)

type Settings struct {
	DataPath        string
	ModelDir        string
	FeedBaseURL     string
	FeedWsURL       string
	Ping            time.Duration
	RESTTimeout     time.Duration
	MetricsPort     int
	UseModel        bool
	TrendWindow     int
	CandidateFactor int
	MonitoringDays  int
	MinTrainDraws   int
	TrainEpochs     int
	RetrainInterval time.Duration
	StaleRunningTTL time.Duration
}

type ConfigFile struct {
	Feed struct {
		BaseURL string `yaml:"baseURL"`
		WsURL   string `yaml:"wsURL"`
	} `yaml:"feed"`

	Recommendation struct {
		UseModel        bool `yaml:"useModel"`
		TrendWindow     int  `yaml:"trendWindow"`
		CandidateFactor int  `yaml:"candidateFactor"`
	} `yaml:"recommendation"`

	Training struct {
		MinDraws        int    `yaml:"minDraws"`
		Epochs          int    `yaml:"epochs"`
		Interval        string `yaml:"interval"`
		StaleRunningTTL string `yaml:"staleRunningTTL"`
	} `yaml:"training"`

	Monitoring struct {
		Days int `yaml:"days"`
	} `yaml:"monitoring"`

	System struct {
		DataPath     string `yaml:"dataPath"`
		ModelDir     string `yaml:"modelDir"`
		MetricsPort  int    `yaml:"metricsPort"`
		PingInterval string `yaml:"pingInterval"`
		RESTTimeout  string `yaml:"restTimeout"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	retrainInterval, err := time.ParseDuration(config.Training.Interval)
	if err != nil {
		retrainInterval = 7 * 24 * time.Hour
	}
	staleTTL, err := time.ParseDuration(config.Training.StaleRunningTTL)
	if err != nil {
		staleTTL = 6 * time.Hour
	}
	ping, err := time.ParseDuration(config.System.PingInterval)
	if err != nil {
		ping = 15 * time.Second
	}
	restTimeout, err := time.ParseDuration(config.System.RESTTimeout)
	if err != nil {
		restTimeout = 5 * time.Second
	}

	settings := Settings{
		DataPath:        getEnvOrDefault(common.EnvDataPath, config.System.DataPath),
		ModelDir:        getEnvOrDefault(common.EnvModelDir, config.System.ModelDir),
		FeedBaseURL:     getEnvOrDefault(common.EnvFeedBaseURL, config.Feed.BaseURL),
		FeedWsURL:       getEnvOrDefault(common.EnvFeedWsURL, config.Feed.WsURL),
		Ping:            ping,
		RESTTimeout:     restTimeout,
		MetricsPort:     getIntFromEnvOrConfig(common.EnvMetricsPort, config.System.MetricsPort),
		UseModel:        getBoolFromEnvOrConfig(common.EnvUseModel, config.Recommendation.UseModel),
		TrendWindow:     getIntFromEnvOrConfig(common.EnvTrendWindow, config.Recommendation.TrendWindow),
		CandidateFactor: getIntFromEnvOrConfig(common.EnvCandidateFactor, config.Recommendation.CandidateFactor),
		MonitoringDays:  getIntFromEnvOrConfig(common.EnvMonitoringDays, config.Monitoring.Days),
		MinTrainDraws:   getIntFromEnvOrConfig(common.EnvMinTrainDraws, config.Training.MinDraws),
		TrainEpochs:     getIntFromEnvOrConfig(common.EnvTrainEpochs, config.Training.Epochs),
		RetrainInterval: retrainInterval,
		StaleRunningTTL: staleTTL,
	}
	applyDefaults(&settings)

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		DataPath:        getEnvOrDefault(common.EnvDataPath, common.DefaultDataPath),
		ModelDir:        getEnvOrDefault(common.EnvModelDir, common.DefaultModelDir),
		FeedBaseURL:     os.Getenv(common.EnvFeedBaseURL), // optional
		FeedWsURL:       os.Getenv(common.EnvFeedWsURL),   // optional
		Ping:            getDurationOrDefault(common.EnvPingInterval, 15*time.Second),
		RESTTimeout:     getDurationOrDefault(common.EnvRESTTimeout, 5*time.Second),
		MetricsPort:     getIntOrDefault(common.EnvMetricsPort, common.DefaultMetricsPort),
		UseModel:        getBoolOrDefault(common.EnvUseModel, false),
		TrendWindow:     getIntOrDefault(common.EnvTrendWindow, common.DefaultTrendWindow),
		CandidateFactor: getIntOrDefault(common.EnvCandidateFactor, common.DefaultCandidateFactor),
		MonitoringDays:  getIntOrDefault(common.EnvMonitoringDays, common.DefaultMonitoringDays),
		MinTrainDraws:   getIntOrDefault(common.EnvMinTrainDraws, common.DefaultMinTrainDraws),
		TrainEpochs:     getIntOrDefault(common.EnvTrainEpochs, common.DefaultTrainEpochs),
		RetrainInterval: getDurationOrDefault(common.EnvRetrainInterval, 7*24*time.Hour),
		StaleRunningTTL: getDurationOrDefault(common.EnvStaleRunningTTL, 6*time.Hour),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	return settings, nil
}

func applyDefaults(s *Settings) {
	if s.DataPath == "" {
		s.DataPath = common.DefaultDataPath
	}
	if s.ModelDir == "" {
		s.ModelDir = common.DefaultModelDir
	}
	if s.MetricsPort == 0 {
		s.MetricsPort = common.DefaultMetricsPort
	}
	if s.TrendWindow == 0 {
		s.TrendWindow = common.DefaultTrendWindow
	}
	if s.CandidateFactor == 0 {
		s.CandidateFactor = common.DefaultCandidateFactor
	}
	if s.MonitoringDays == 0 {
		s.MonitoringDays = common.DefaultMonitoringDays
	}
	if s.MinTrainDraws == 0 {
		s.MinTrainDraws = common.DefaultMinTrainDraws
	}
	if s.TrainEpochs == 0 {
		s.TrainEpochs = common.DefaultTrainEpochs
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	return configValue
}

func getBoolFromEnvOrConfig(key string, configValue bool) bool {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	return configValue
}

// validateSettings performs range validation of configuration values
func validateSettings(s *Settings) error {
	if s.DataPath == "" {
		return fmt.Errorf("data path cannot be empty")
	}
	if s.ModelDir == "" {
		return fmt.Errorf("model directory cannot be empty")
	}
	if s.MetricsPort < common.MinMetricsPort || s.MetricsPort > common.MaxMetricsPort {
		return fmt.Errorf("metrics port must be between %d and %d, got %d",
			common.MinMetricsPort, common.MaxMetricsPort, s.MetricsPort)
	}
	if s.TrendWindow < common.MinTrendWindow || s.TrendWindow > common.MaxTrendWindow {
		return fmt.Errorf("trend window must be between %d and %d, got %d",
			common.MinTrendWindow, common.MaxTrendWindow, s.TrendWindow)
	}
	if s.CandidateFactor < 1 || s.CandidateFactor > 100 {
		return fmt.Errorf("candidate factor must be between 1 and 100, got %d", s.CandidateFactor)
	}
	if s.MonitoringDays < 1 || s.MonitoringDays > common.MaxMonitoringDays {
		return fmt.Errorf("monitoring days must be between 1 and %d, got %d",
			common.MaxMonitoringDays, s.MonitoringDays)
	}
	if s.MinTrainDraws < 1 {
		return fmt.Errorf("minimum training draws must be positive, got %d", s.MinTrainDraws)
	}
	if s.TrainEpochs < 1 || s.TrainEpochs > 100000 {
		return fmt.Errorf("training epochs must be between 1 and 100000, got %d", s.TrainEpochs)
	}
	if s.RetrainInterval < time.Hour {
		return fmt.Errorf("retrain interval must be at least 1h, got %v", s.RetrainInterval)
	}
	if s.StaleRunningTTL < time.Minute {
		return fmt.Errorf("stale running TTL must be at least 1m, got %v", s.StaleRunningTTL)
	}
	if s.Ping < time.Second || s.Ping > 5*time.Minute {
		return fmt.Errorf("ping interval must be between 1s and 5m, got %v", s.Ping)
	}
	if s.RESTTimeout < time.Second || s.RESTTimeout > time.Minute {
		return fmt.Errorf("REST timeout must be between 1s and 1m, got %v", s.RESTTimeout)
	}
	return nil
}
