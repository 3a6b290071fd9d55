package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Exchange struct {
		BaseURL   string `yaml:"base_url"`
		Symbol    string `yaml:"symbol"`
		Timeframe string `yaml:"timeframe"`
	} `yaml:"exchange"`
	Trading struct {
		UnitQuantity  string `yaml:"unit_quantity"`
		WindowCandles int    `yaml:"window_candles"`
		OrderRetries  uint64 `yaml:"order_retries"`
		FetchRetries  uint64 `yaml:"fetch_retries"`
	} `yaml:"trading"`
	Schedule struct {
		CycleCron   string `yaml:"cycle_cron"`
		RetrainCron string `yaml:"retrain_cron"`
		PollSeconds int    `yaml:"poll_seconds"`
	} `yaml:"schedule"`
	Retrain struct {
		HistoryCandles int     `yaml:"history_candles"`
		Horizon        int     `yaml:"horizon"`
		LabelThreshold float64 `yaml:"label_threshold"`
		Epochs         int     `yaml:"epochs"`
	} `yaml:"retrain"`
	Paths struct {
		HistoryDir    string `yaml:"history_dir"`
		ArtifactDir   string `yaml:"artifact_dir"`
		PositionState string `yaml:"position_state"`
		SQLitePath    string `yaml:"sqlite_path"`
	} `yaml:"paths"`
	WebhookURL string `yaml:"webhook_url"`

	// Credentials come only from the environment, never from the file.
	APIKey    string `yaml:"-"`
	APISecret string `yaml:"-"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	cfg.APIKey = os.Getenv("BITUNIX_KEY")
	cfg.APISecret = os.Getenv("BITUNIX_SECRET")
	if v := os.Getenv("ECHONODE_SYMBOL"); v != "" {
		cfg.Exchange.Symbol = v
	}
	if v := os.Getenv("ECHONODE_BASE_URL"); v != "" {
		cfg.Exchange.BaseURL = v
	}
	if v := os.Getenv("ECHONODE_WEBHOOK_URL"); v != "" {
		cfg.WebhookURL = v
	}
	if v := os.Getenv("ECHONODE_CYCLE_CRON"); v != "" {
		cfg.Schedule.CycleCron = v
	}
	if v := os.Getenv("ECHONODE_RETRAIN_CRON"); v != "" {
		cfg.Schedule.RetrainCron = v
	}
	if v := os.Getenv("ECHONODE_SQLITE_PATH"); v != "" {
		cfg.Paths.SQLitePath = v
	}

	// Defaults
	if cfg.Exchange.Symbol == "" {
		cfg.Exchange.Symbol = "BTC/USDT"
	}
	if cfg.Exchange.Timeframe == "" {
		cfg.Exchange.Timeframe = "1h"
	}
	if cfg.Trading.UnitQuantity == "" {
		cfg.Trading.UnitQuantity = "0.001"
	}
	if cfg.Trading.WindowCandles == 0 {
		cfg.Trading.WindowCandles = 64
	}
	if cfg.Trading.OrderRetries == 0 {
		cfg.Trading.OrderRetries = 3
	}
	if cfg.Trading.FetchRetries == 0 {
		cfg.Trading.FetchRetries = 3
	}
	if cfg.Schedule.CycleCron == "" {
		cfg.Schedule.CycleCron = "0 * * * *" // top of every hour
	}
	if cfg.Schedule.RetrainCron == "" {
		cfg.Schedule.RetrainCron = "30 2 * * 1" // Monday 02:30
	}
	if cfg.Schedule.PollSeconds == 0 {
		cfg.Schedule.PollSeconds = 20
	}
	if cfg.Retrain.HistoryCandles == 0 {
		cfg.Retrain.HistoryCandles = 500
	}
	if cfg.Retrain.Horizon == 0 {
		cfg.Retrain.Horizon = 4
	}
	if cfg.Retrain.LabelThreshold == 0 {
		cfg.Retrain.LabelThreshold = 0.002
	}
	if cfg.Retrain.Epochs == 0 {
		cfg.Retrain.Epochs = 5
	}
	if cfg.Paths.HistoryDir == "" {
		cfg.Paths.HistoryDir = "data/history"
	}
	if cfg.Paths.ArtifactDir == "" {
		cfg.Paths.ArtifactDir = "data/models"
	}
	if cfg.Paths.PositionState == "" {
		cfg.Paths.PositionState = "data/position_state.json"
	}
	if cfg.Paths.SQLitePath == "" {
		cfg.Paths.SQLitePath = "data/echonode.db"
	}
	// "off" opts out of SQLite recording entirely.
	if cfg.Paths.SQLitePath == "off" {
		cfg.Paths.SQLitePath = ""
	}

	return cfg, nil
}

// Validate checks that all required fields are set. Missing credentials are
// a startup-fatal configuration error, not a per-cycle one.
func (c *Config) Validate() error {
	if c.APIKey == "" || c.APISecret == "" {
		return fmt.Errorf("BITUNIX_KEY and BITUNIX_SECRET must be set")
	}
	if c.Exchange.Symbol == "" {
		return fmt.Errorf("exchange.symbol is required")
	}
	if c.Trading.WindowCandles < 36 {
		return fmt.Errorf("trading.window_candles must be at least 36 for feature computation")
	}
	if c.Retrain.HistoryCandles <= c.Trading.WindowCandles+c.Retrain.Horizon {
		return fmt.Errorf("retrain.history_candles must exceed window_candles + horizon")
	}
	return nil
}
