// Package config provides configuration management for the trading application.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Trading       TradingConfig      `mapstructure:"trading"`
	Risk          RiskConfig         `mapstructure:"risk"`
	Strategy      StrategyConfig     `mapstructure:"strategy"`
	Inference     InferenceConfig    `mapstructure:"inference"`
	Recorder      RecorderConfig     `mapstructure:"recorder"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Credentials   Credentials        `mapstructure:"-"` // Loaded separately
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
}

// TradingConfig holds trading-related configuration.
type TradingConfig struct {
	Mode           string        `mapstructure:"mode"` // "live", "paper", "recorder"
	Symbols        []string      `mapstructure:"symbols"`
	CandleInterval time.Duration `mapstructure:"candle_interval"`
	InitialBalance float64       `mapstructure:"initial_balance"`
}

// RiskConfig holds risk management configuration.
type RiskConfig struct {
	MinConfidence   float64 `mapstructure:"min_confidence"`
	MaxPositionSize float64 `mapstructure:"max_position_size"`
}

// StrategyConfig holds reversal strategy configuration.
type StrategyConfig struct {
	MAPeriod      int     `mapstructure:"ma_period"`
	FilterBearish bool    `mapstructure:"filter_bearish"`
	FilterBullish bool    `mapstructure:"filter_bullish"`
	RiskFraction  float64 `mapstructure:"risk_fraction"`
	StopBuffer    float64 `mapstructure:"stop_buffer"`
}

// InferenceConfig holds AI confidence gate configuration.
type InferenceConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	Model         string        `mapstructure:"model"`
	MinConfidence float64       `mapstructure:"min_confidence"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// RecorderConfig holds tick recorder configuration.
type RecorderConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled  bool    `mapstructure:"enabled"`
	BotToken string  `mapstructure:"bot_token"`
	ChatIDs  []int64 `mapstructure:"chat_ids"`
}

// Credentials holds API credentials.
type Credentials struct {
	Kraken KrakenCredentials `mapstructure:"kraken"`
	OpenAI OpenAICredentials `mapstructure:"openai"`
}

// KrakenCredentials holds Kraken Futures API credentials.
type KrakenCredentials struct {
	APIKey     string `mapstructure:"api_key"`
	PrivateKey string `mapstructure:"private_key"`
}

// OpenAICredentials holds OpenAI API credentials.
type OpenAICredentials struct {
	APIKey string `mapstructure:"api_key"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/kraken-trader"
	}
	return filepath.Join(home, ".config", "kraken-trader")
}

// DefaultSymbols are the Kraken Futures perpetuals subscribed by default.
var DefaultSymbols = []string{
	"PI_XBTUSD", "PI_ETHUSD", "PI_SOLUSD", "PI_XRPUSD", "PI_LTCUSD",
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	if err := loadConfigFile(configDir, cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir string, target *Config) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	v.SetDefault("app.name", "kraken-trader")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.data_dir", filepath.Join(configDir, "data"))
	v.SetDefault("trading.mode", "paper")
	v.SetDefault("trading.symbols", DefaultSymbols)
	v.SetDefault("trading.candle_interval", time.Minute)
	v.SetDefault("trading.initial_balance", 10000.0)
	v.SetDefault("risk.min_confidence", 0.5)
	v.SetDefault("risk.max_position_size", 1000.0)
	v.SetDefault("strategy.ma_period", 50)
	v.SetDefault("strategy.filter_bearish", true)
	v.SetDefault("strategy.filter_bullish", true)
	v.SetDefault("strategy.risk_fraction", 0.03)
	v.SetDefault("strategy.stop_buffer", 0.001)
	v.SetDefault("inference.enabled", false)
	v.SetDefault("inference.model", "gpt-4o-mini")
	v.SetDefault("inference.min_confidence", 0.5)
	v.SetDefault("inference.timeout", 5*time.Second)
	v.SetDefault("recorder.enabled", true)
	v.SetDefault("recorder.dir", filepath.Join(configDir, "data", "raw"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			if werr := createTemplateConfig(configDir); werr != nil {
				return werr
			}
			return v.Unmarshal(target)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KRAKEN_API_KEY"); v != "" {
		cfg.Credentials.Kraken.APIKey = v
	}
	if v := os.Getenv("KRAKEN_PRIVATE_KEY"); v != "" {
		cfg.Credentials.Kraken.PrivateKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Credentials.OpenAI.APIKey = v
	}
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		cfg.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv("TRADING_MODE"); v != "" {
		cfg.Trading.Mode = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Trading.Mode {
	case "", "live", "paper", "recorder", "backtest":
	default:
		return fmt.Errorf("invalid trading mode: %s (must be 'live', 'paper', 'recorder' or 'backtest')", c.Trading.Mode)
	}

	if c.Trading.CandleInterval <= 0 {
		return fmt.Errorf("candle_interval must be positive")
	}
	if c.Trading.InitialBalance <= 0 {
		return fmt.Errorf("initial_balance must be positive")
	}
	if c.Risk.MinConfidence < 0 || c.Risk.MinConfidence > 1 {
		return fmt.Errorf("risk.min_confidence must be between 0 and 1")
	}
	if c.Risk.MaxPositionSize <= 0 {
		return fmt.Errorf("risk.max_position_size must be positive")
	}
	if c.Strategy.MAPeriod <= 0 {
		return fmt.Errorf("strategy.ma_period must be positive")
	}
	if c.Strategy.RiskFraction <= 0 || c.Strategy.RiskFraction >= 1 {
		return fmt.Errorf("strategy.risk_fraction must be between 0 and 1")
	}

	return nil
}

// IsPaperMode returns true if paper trading mode is enabled.
func (c *Config) IsPaperMode() bool {
	return c.Trading.Mode == "paper"
}
