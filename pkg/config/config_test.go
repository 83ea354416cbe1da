package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
environment: test
trading:
  symbol: NIFTY
  max_daily_loss: 900
  risk_per_point: 65
oracle:
  artifact_path: /var/lib/strikegate/model.json
`

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if c.Trading.ConfidenceFloor != 60 {
		t.Errorf("ConfidenceFloor = %v, want 60", c.Trading.ConfidenceFloor)
	}
	if c.Trading.MaxTradesPerDay != 2 {
		t.Errorf("MaxTradesPerDay = %d, want 2", c.Trading.MaxTradesPerDay)
	}
	if c.Trading.MinViableStopPoints != 5 {
		t.Errorf("MinViableStopPoints = %v, want 5", c.Trading.MinViableStopPoints)
	}
	if c.Trading.LevelWindow != 20 {
		t.Errorf("LevelWindow = %d, want 20", c.Trading.LevelWindow)
	}
	if c.Trading.EntryThresholdFrac != 0.20 {
		t.Errorf("EntryThresholdFrac = %v, want 0.20", c.Trading.EntryThresholdFrac)
	}
	if c.Trading.Timeframe != "1m" {
		t.Errorf("Timeframe = %q, want 1m", c.Trading.Timeframe)
	}
	if c.Trading.CycleInterval != time.Minute {
		t.Errorf("CycleInterval = %v, want 1m", c.Trading.CycleInterval)
	}
	if c.Trading.SessionOpen != "09:15" || c.Trading.SessionClose != "15:30" {
		t.Errorf("session window = %s-%s, want 09:15-15:30", c.Trading.SessionOpen, c.Trading.SessionClose)
	}
	if c.Oracle.Mode != "local" {
		t.Errorf("Oracle.Mode = %q, want local", c.Oracle.Mode)
	}
	if c.Log.Level != "info" || c.Log.Format != "json" {
		t.Errorf("log defaults = %s/%s, want info/json", c.Log.Level, c.Log.Format)
	}
	if c.Redis.KeyPrefix != "strikegate" {
		t.Errorf("Redis.KeyPrefix = %q, want strikegate", c.Redis.KeyPrefix)
	}
	if c.Postgres.ReadRetryMax != 3 {
		t.Errorf("Postgres.ReadRetryMax = %d, want 3", c.Postgres.ReadRetryMax)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing environment",
			content: `
trading:
  symbol: NIFTY
  max_daily_loss: 900
  risk_per_point: 65
oracle:
  artifact_path: /tmp/model.json
`,
			wantErr: "environment is required",
		},
		{
			name: "missing symbol",
			content: `
environment: test
trading:
  max_daily_loss: 900
  risk_per_point: 65
oracle:
  artifact_path: /tmp/model.json
`,
			wantErr: "trading.symbol is required",
		},
		{
			name: "confidence floor above 100",
			content: `
environment: test
trading:
  symbol: NIFTY
  confidence_floor: 150
  max_daily_loss: 900
  risk_per_point: 65
oracle:
  artifact_path: /tmp/model.json
`,
			wantErr: "confidence_floor",
		},
		{
			name: "missing max daily loss",
			content: `
environment: test
trading:
  symbol: NIFTY
  risk_per_point: 65
oracle:
  artifact_path: /tmp/model.json
`,
			wantErr: "max_daily_loss",
		},
		{
			name: "negative risk per point",
			content: `
environment: test
trading:
  symbol: NIFTY
  max_daily_loss: 900
  risk_per_point: -5
oracle:
  artifact_path: /tmp/model.json
`,
			wantErr: "risk_per_point",
		},
		{
			name: "negative level window",
			content: `
environment: test
trading:
  symbol: NIFTY
  max_daily_loss: 900
  risk_per_point: 65
  level_window: -1
oracle:
  artifact_path: /tmp/model.json
`,
			wantErr: "level_window",
		},
		{
			name: "entry threshold above 1",
			content: `
environment: test
trading:
  symbol: NIFTY
  max_daily_loss: 900
  risk_per_point: 65
  entry_threshold_frac: 1.5
oracle:
  artifact_path: /tmp/model.json
`,
			wantErr: "entry_threshold_frac",
		},
		{
			name: "unparseable session open",
			content: `
environment: test
trading:
  symbol: NIFTY
  max_daily_loss: 900
  risk_per_point: 65
  session_open: 9am
oracle:
  artifact_path: /tmp/model.json
`,
			wantErr: "session_open",
		},
		{
			name: "unknown oracle mode",
			content: `
environment: test
trading:
  symbol: NIFTY
  max_daily_loss: 900
  risk_per_point: 65
oracle:
  mode: ensemble
`,
			wantErr: "oracle.mode",
		},
		{
			name: "local mode without artifact path",
			content: `
environment: test
trading:
  symbol: NIFTY
  max_daily_loss: 900
  risk_per_point: 65
oracle:
  mode: local
`,
			wantErr: "artifact_path",
		},
		{
			name: "remote mode without service url",
			content: `
environment: test
trading:
  symbol: NIFTY
  max_daily_loss: 900
  risk_per_point: 65
oracle:
  mode: remote
`,
			wantErr: "service_url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "environment: [unclosed")); err == nil {
		t.Fatal("expected parse error, got nil")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("SYMBOL", "BANKNIFTY")
	t.Setenv("CONFIDENCE_FLOOR", "70")
	t.Setenv("MAX_DAILY_LOSS", "1200")
	t.Setenv("REDIS_ADDR", "redis-1:6379")

	c, err := LoadWithEnv(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("LoadWithEnv: %v", err)
	}

	if c.Trading.Symbol != "BANKNIFTY" {
		t.Errorf("Symbol = %q, want BANKNIFTY", c.Trading.Symbol)
	}
	if c.Trading.ConfidenceFloor != 70 {
		t.Errorf("ConfidenceFloor = %v, want 70", c.Trading.ConfidenceFloor)
	}
	if c.Trading.MaxDailyLoss != 1200 {
		t.Errorf("MaxDailyLoss = %v, want 1200", c.Trading.MaxDailyLoss)
	}
	if c.Redis.Addr != "redis-1:6379" {
		t.Errorf("Redis.Addr = %q, want redis-1:6379", c.Redis.Addr)
	}
	// RiskPerPoint was not overridden and must survive untouched.
	if c.Trading.RiskPerPoint != 65 {
		t.Errorf("RiskPerPoint = %v, want 65", c.Trading.RiskPerPoint)
	}
}

func TestLoadWithEnvRejectsInvalidOverride(t *testing.T) {
	t.Setenv("CONFIDENCE_FLOOR", "150")

	if _, err := LoadWithEnv(writeConfig(t, minimalConfig)); err == nil {
		t.Fatal("expected validation error for out-of-range override, got nil")
	}
}
