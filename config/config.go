package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete application configuration.
type Config struct {
	Exchange ExchangeConfig `json:"exchange" yaml:"exchange"`
	Account  AccountConfig  `json:"account" yaml:"account"`
	Trading  TradingConfig  `json:"trading" yaml:"trading"`
	Storage  StorageConfig  `json:"storage" yaml:"storage"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

// ExchangeConfig holds venue credentials. Real enables live order routing;
// without it every order is simulated against the virtual ledger.
type ExchangeConfig struct {
	APIKey    string `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APISecret string `json:"api_secret,omitempty" yaml:"api_secret,omitempty"`
	BaseURL   string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	Real      bool   `json:"real" yaml:"real"`
}

// AccountConfig contains virtual account initialization parameters.
type AccountConfig struct {
	Currency       string  `json:"currency" yaml:"currency"`
	VirtualBalance float64 `json:"virtual_balance" yaml:"virtual_balance"`
}

// TradingConfig tunes the automated trading loop.
type TradingConfig struct {
	Symbols       []string `json:"symbols" yaml:"symbols"`
	Interval      string   `json:"interval" yaml:"interval"`             // e.g. "60s"
	ErrorBackoff  string   `json:"error_backoff" yaml:"error_backoff"`   // e.g. "30s"
	MinConfidence float64  `json:"min_confidence" yaml:"min_confidence"` // 0..1
	RiskPerTrade  float64  `json:"risk_per_trade" yaml:"risk_per_trade"` // 0..1
	MinSLPoints   float64  `json:"min_sl_points" yaml:"min_sl_points"`
	MaxSLPoints   float64  `json:"max_sl_points" yaml:"max_sl_points"`
	Leverage      int      `json:"leverage" yaml:"leverage"`
}

// StorageConfig locates the persistent state documents and the trade journal.
type StorageConfig struct {
	DataDir     string `json:"data_dir" yaml:"data_dir"`
	JournalPath string `json:"journal_path,omitempty" yaml:"journal_path,omitempty"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text or json
}

// IntervalDuration parses the scan interval, falling back to 60s.
func (t TradingConfig) IntervalDuration() time.Duration {
	if d, err := time.ParseDuration(t.Interval); err == nil && d > 0 {
		return d
	}
	return 60 * time.Second
}

// ErrorBackoffDuration parses the error backoff, falling back to 30s.
func (t TradingConfig) ErrorBackoffDuration() time.Duration {
	if d, err := time.ParseDuration(t.ErrorBackoff); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// LoadFromFile loads configuration from a file (YAML or JSON), applies
// environment overrides and clamps out-of-range values.
func LoadFromFile(path string, log *slog.Logger) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.applyEnv()
	cfg.normalize(log)
	return cfg, nil
}

// Load returns the default configuration with environment overrides applied.
// Used when no config file is given.
func Load(log *slog.Logger) *Config {
	cfg := Default()
	cfg.applyEnv()
	cfg.normalize(log)
	return cfg
}

// SaveToFile writes the configuration as YAML or JSON based on the extension.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// applyEnv overlays credentials and mode flags from the environment so
// secrets never need to live in the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("BYBIT_API_KEY"); v != "" {
		c.Exchange.APIKey = v
	}
	if v := os.Getenv("BYBIT_API_SECRET"); v != "" {
		c.Exchange.APISecret = v
	}
	if v := os.Getenv("VEX_REAL"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes":
			c.Exchange.Real = true
		default:
			c.Exchange.Real = false
		}
	}
	if v := os.Getenv("VEX_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
}

// normalize clamps out-of-range values back to defaults with a warning
// instead of refusing to start.
func (c *Config) normalize(log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	def := Default()

	if c.Account.VirtualBalance <= 0 {
		log.Warn("invalid virtual_balance, using default",
			"value", c.Account.VirtualBalance, "default", def.Account.VirtualBalance)
		c.Account.VirtualBalance = def.Account.VirtualBalance
	}
	if c.Account.Currency == "" {
		c.Account.Currency = def.Account.Currency
	}
	if c.Trading.RiskPerTrade <= 0 || c.Trading.RiskPerTrade > 1 {
		log.Warn("invalid risk_per_trade, using default",
			"value", c.Trading.RiskPerTrade, "default", def.Trading.RiskPerTrade)
		c.Trading.RiskPerTrade = def.Trading.RiskPerTrade
	}
	if c.Trading.MinConfidence < 0 || c.Trading.MinConfidence > 1 {
		log.Warn("invalid min_confidence, using default",
			"value", c.Trading.MinConfidence, "default", def.Trading.MinConfidence)
		c.Trading.MinConfidence = def.Trading.MinConfidence
	}
	if c.Trading.Leverage < 1 || c.Trading.Leverage > 100 {
		log.Warn("invalid leverage, using default",
			"value", c.Trading.Leverage, "default", def.Trading.Leverage)
		c.Trading.Leverage = def.Trading.Leverage
	}
	if c.Trading.MaxSLPoints > 0 && c.Trading.MinSLPoints > c.Trading.MaxSLPoints {
		log.Warn("min_sl_points exceeds max_sl_points, swapping",
			"min", c.Trading.MinSLPoints, "max", c.Trading.MaxSLPoints)
		c.Trading.MinSLPoints, c.Trading.MaxSLPoints = c.Trading.MaxSLPoints, c.Trading.MinSLPoints
	}
	if len(c.Trading.Symbols) == 0 {
		c.Trading.Symbols = def.Trading.Symbols
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = def.Storage.DataDir
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Currency:       "USDT",
			VirtualBalance: 100,
		},
		Trading: TradingConfig{
			Symbols:       []string{"BTCUSDT"},
			Interval:      "60s",
			ErrorBackoff:  "30s",
			MinConfidence: 0.6,
			RiskPerTrade:  0.01,
			Leverage:      10,
		},
		Storage: StorageConfig{
			DataDir:     "./data",
			JournalPath: "./data/journal.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
