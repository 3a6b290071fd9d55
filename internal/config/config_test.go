package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Exchange.Symbol != "BTC/USDT" {
		t.Errorf("default symbol: got %q", cfg.Exchange.Symbol)
	}
	if cfg.Exchange.Timeframe != "1h" {
		t.Errorf("default timeframe: got %q", cfg.Exchange.Timeframe)
	}
	if cfg.Trading.WindowCandles != 64 {
		t.Errorf("default window_candles: got %d", cfg.Trading.WindowCandles)
	}
	if cfg.Schedule.CycleCron != "0 * * * *" {
		t.Errorf("default cycle_cron: got %q", cfg.Schedule.CycleCron)
	}
	if cfg.Schedule.RetrainCron != "30 2 * * 1" {
		t.Errorf("default retrain_cron: got %q", cfg.Schedule.RetrainCron)
	}
	if cfg.Retrain.HistoryCandles != 500 {
		t.Errorf("default history_candles: got %d", cfg.Retrain.HistoryCandles)
	}
	if cfg.Paths.SQLitePath != "data/echonode.db" {
		t.Errorf("default sqlite_path: got %q", cfg.Paths.SQLitePath)
	}
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
exchange:
  symbol: ETH/USDT
  timeframe: 4h
trading:
  unit_quantity: "0.05"
  window_candles: 96
schedule:
  cycle_cron: "15 * * * *"
retrain:
  history_candles: 800
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Exchange.Symbol != "ETH/USDT" || cfg.Exchange.Timeframe != "4h" {
		t.Errorf("exchange section not honored: %+v", cfg.Exchange)
	}
	if cfg.Trading.UnitQuantity != "0.05" || cfg.Trading.WindowCandles != 96 {
		t.Errorf("trading section not honored: %+v", cfg.Trading)
	}
	if cfg.Schedule.CycleCron != "15 * * * *" {
		t.Errorf("schedule section not honored: %+v", cfg.Schedule)
	}
	// Unset fields still get defaults.
	if cfg.Retrain.Horizon != 4 || cfg.Trading.OrderRetries != 3 {
		t.Errorf("defaults not applied alongside file values: %+v", cfg)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
exchange:
  symbol: ETH/USDT
`)
	t.Setenv("ECHONODE_SYMBOL", "SOL/USDT")
	t.Setenv("ECHONODE_CYCLE_CRON", "30 * * * *")
	t.Setenv("BITUNIX_KEY", "k")
	t.Setenv("BITUNIX_SECRET", "s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Exchange.Symbol != "SOL/USDT" {
		t.Errorf("env override lost: got %q", cfg.Exchange.Symbol)
	}
	if cfg.Schedule.CycleCron != "30 * * * *" {
		t.Errorf("env override lost: got %q", cfg.Schedule.CycleCron)
	}
	if cfg.APIKey != "k" || cfg.APISecret != "s" {
		t.Errorf("credentials not picked up from environment")
	}
}

func TestLoad_SQLiteOff(t *testing.T) {
	path := writeConfig(t, `
paths:
  sqlite_path: "off"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Paths.SQLitePath != "" {
		t.Errorf("expected sqlite_path off to disable recording, got %q", cfg.Paths.SQLitePath)
	}

	t.Setenv("ECHONODE_SQLITE_PATH", "off")
	cfg, err = Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Paths.SQLitePath != "" {
		t.Errorf("expected env off to disable recording, got %q", cfg.Paths.SQLitePath)
	}
}

func TestValidate_MissingCredentialsFatal(t *testing.T) {
	t.Setenv("BITUNIX_KEY", "")
	t.Setenv("BITUNIX_SECRET", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation failure without credentials")
	}
}

func TestValidate_WindowTooSmall(t *testing.T) {
	t.Setenv("BITUNIX_KEY", "k")
	t.Setenv("BITUNIX_SECRET", "s")
	path := writeConfig(t, `
trading:
  window_candles: 10
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation failure for tiny window")
	}
}

func TestValidate_HistoryMustExceedWindow(t *testing.T) {
	t.Setenv("BITUNIX_KEY", "k")
	t.Setenv("BITUNIX_SECRET", "s")
	path := writeConfig(t, `
trading:
  window_candles: 64
retrain:
  history_candles: 60
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected validation failure when history fits inside one window")
	}
}

func TestValidate_HappyPath(t *testing.T) {
	t.Setenv("BITUNIX_KEY", "k")
	t.Setenv("BITUNIX_SECRET", "s")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
}
