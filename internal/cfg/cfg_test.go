package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"lotto-engine/internal/common"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		common.EnvConfigFile, common.EnvDataPath, common.EnvModelDir,
		common.EnvFeedBaseURL, common.EnvFeedWsURL, common.EnvMetricsPort,
		common.EnvTrendWindow, common.EnvMonitoringDays, common.EnvMinTrainDraws,
		common.EnvRetrainInterval, common.EnvTrainEpochs, common.EnvUseModel,
		common.EnvRESTTimeout, common.EnvPingInterval, common.EnvCandidateFactor,
		common.EnvStaleRunningTTL,
	} {
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	s, err := Load()
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}

	if s.DataPath != common.DefaultDataPath {
		t.Errorf("expected default data path %q, got %q", common.DefaultDataPath, s.DataPath)
	}
	if s.TrendWindow != common.DefaultTrendWindow {
		t.Errorf("expected trend window %d, got %d", common.DefaultTrendWindow, s.TrendWindow)
	}
	if s.MinTrainDraws != common.DefaultMinTrainDraws {
		t.Errorf("expected min train draws %d, got %d", common.DefaultMinTrainDraws, s.MinTrainDraws)
	}
	if s.RetrainInterval != 7*24*time.Hour {
		t.Errorf("expected weekly retrain interval, got %v", s.RetrainInterval)
	}
	if s.UseModel {
		t.Error("model mode should default to off")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(common.EnvTrendWindow, "30")
	t.Setenv(common.EnvUseModel, "true")
	t.Setenv(common.EnvMetricsPort, "9100")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.TrendWindow != 30 {
		t.Errorf("expected trend window 30, got %d", s.TrendWindow)
	}
	if !s.UseModel {
		t.Error("expected model mode enabled")
	}
	if s.MetricsPort != 9100 {
		t.Errorf("expected metrics port 9100, got %d", s.MetricsPort)
	}
}

func TestLoadFromYAML(t *testing.T) {
	clearEnv(t)

	content := `
feed:
  baseURL: "https://lottery.example.com"
recommendation:
  useModel: true
  trendWindow: 25
training:
  minDraws: 600
  epochs: 150
  interval: "168h"
monitoring:
  days: 14
system:
  dataPath: "/tmp/lotto-data"
  modelDir: "/tmp/lotto-models"
  metricsPort: 9200
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(common.EnvConfigFile, path)

	s, err := Load()
	if err != nil {
		t.Fatalf("Load from YAML failed: %v", err)
	}
	if s.FeedBaseURL != "https://lottery.example.com" {
		t.Errorf("unexpected feed base URL %q", s.FeedBaseURL)
	}
	if !s.UseModel || s.TrendWindow != 25 {
		t.Errorf("recommendation section not applied: %+v", s)
	}
	if s.MinTrainDraws != 600 || s.TrainEpochs != 150 {
		t.Errorf("training section not applied: %+v", s)
	}
	if s.MonitoringDays != 14 {
		t.Errorf("expected monitoring days 14, got %d", s.MonitoringDays)
	}
	if s.MetricsPort != 9200 {
		t.Errorf("expected metrics port 9200, got %d", s.MetricsPort)
	}
}

func TestEnvBeatsYAML(t *testing.T) {
	clearEnv(t)

	content := `
recommendation:
  trendWindow: 25
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(common.EnvConfigFile, path)
	t.Setenv(common.EnvTrendWindow, "40")

	s, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.TrendWindow != 40 {
		t.Errorf("env should override YAML, got %d", s.TrendWindow)
	}
}

func TestValidationRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"metrics port too low", common.EnvMetricsPort, "80"},
		{"trend window too small", common.EnvTrendWindow, "2"},
		{"trend window too large", common.EnvTrendWindow, "500"},
		{"monitoring days zero rejected via negative", common.EnvMonitoringDays, "-1"},
		{"candidate factor too large", common.EnvCandidateFactor, "500"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil {
				t.Errorf("expected validation error for %s=%s", tc.key, tc.val)
			}
		})
	}
}
