// Package config provides centralized configuration for the mdcheck tools.
// Configuration is loaded in priority order: environment variables override
// values from an optional JSON config file, which override built-in
// defaults.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"log/slog"
)

// AppConfig is the complete application configuration.
type AppConfig struct {
	AppName string `json:"app_name" env:"APP_NAME"`
	Version string `json:"version" env:"VERSION"`

	Validator ValidatorConfig `json:"validator"`
	Session   SessionConfig   `json:"session"`
	Fetch     FetchConfig     `json:"fetch"`
	Logging   LoggingConfig   `json:"logging"`
}

// ValidatorConfig configures the quality-check battery.
type ValidatorConfig struct {
	Schema          string  `json:"schema" env:"SCHEMA"`                         // Data schema (ohlcv-1h, trades, mbp-1, ...)
	MaxGapMinutes   int     `json:"max_gap_minutes" env:"MAX_GAP_MINUTES"`       // Maximum acceptable timestamp gap
	PriceOutlierStd float64 `json:"price_outlier_std" env:"PRICE_OUTLIER_STD"`   // Outlier threshold in standard deviations
}

// SessionConfig configures session transition filtering.
type SessionConfig struct {
	MinutesBefore int `json:"minutes_before" env:"TRANSITION_MINUTES_BEFORE"` // Minutes before a transition to keep
	MinutesAfter  int `json:"minutes_after" env:"TRANSITION_MINUTES_AFTER"`   // Minutes after a transition to keep
}

// FetchConfig configures the vendor-fetch boundary.
type FetchConfig struct {
	Dataset        string  `json:"dataset" env:"FETCH_DATASET"`                   // Vendor dataset code
	StypeIn        string  `json:"stype_in" env:"FETCH_STYPE_IN"`                 // Input symbology type
	MaxAttempts    int     `json:"max_attempts" env:"FETCH_MAX_ATTEMPTS"`         // Total fetch attempts
	RetryDelay     string  `json:"retry_delay" env:"FETCH_RETRY_DELAY"`           // Fixed delay between attempts
	CostConfirmUSD float64 `json:"cost_confirm_usd" env:"FETCH_COST_CONFIRM_USD"` // Estimated cost requiring confirmation
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level      string `json:"level" env:"LOG_LEVEL"`
	Format     string `json:"format" env:"LOG_FORMAT"`
	Output     string `json:"output" env:"LOG_OUTPUT"`
	FilePath   string `json:"file_path" env:"LOG_FILE_PATH"`
	MaxSize    int    `json:"max_size" env:"LOG_MAX_SIZE"`
	MaxBackups int    `json:"max_backups" env:"LOG_MAX_BACKUPS"`
	MaxAge     int    `json:"max_age" env:"LOG_MAX_AGE"`
	Compress   bool   `json:"compress" env:"LOG_COMPRESS"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		AppName: "mdcheck",
		Version: "1.0.0",
		Validator: ValidatorConfig{
			Schema:          "ohlcv-1h",
			MaxGapMinutes:   60,
			PriceOutlierStd: 10.0,
		},
		Session: SessionConfig{
			MinutesBefore: 30,
			MinutesAfter:  30,
		},
		Fetch: FetchConfig{
			Dataset:        "GLBX.MDP3",
			StypeIn:        "continuous",
			MaxAttempts:    3,
			RetryDelay:     "2s",
			CostConfirmUSD: 10.0,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// ConfigManager handles configuration loading and validation.
type ConfigManager struct {
	config     *AppConfig
	configPath string
	logger     *slog.Logger
}

// NewConfigManager creates a configuration manager. configPath may be empty,
// in which case only defaults and environment variables apply.
func NewConfigManager(configPath string, logger *slog.Logger) *ConfigManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigManager{
		configPath: configPath,
		logger:     logger,
	}
}

// LoadConfig loads configuration from defaults, then the config file, then
// environment variable overrides, and validates the result.
func (cm *ConfigManager) LoadConfig(ctx context.Context) (*AppConfig, error) {
	config := DefaultConfig()

	if cm.configPath != "" {
		if err := cm.loadFromFile(config); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	cm.loadFromEnv(config)

	if err := cm.validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	cm.config = config
	cm.logger.Debug("configuration loaded",
		"config_path", cm.configPath,
		"schema", config.Validator.Schema,
		"log_level", config.Logging.Level)
	return config, nil
}

// GetConfig returns the last loaded configuration.
func (cm *ConfigManager) GetConfig() *AppConfig {
	return cm.config
}

func (cm *ConfigManager) loadFromFile(config *AppConfig) error {
	if _, err := os.Stat(cm.configPath); os.IsNotExist(err) {
		cm.logger.Debug("config file does not exist, using defaults", "path", cm.configPath)
		return nil
	}

	data, err := os.ReadFile(cm.configPath)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", cm.configPath, err)
	}
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", cm.configPath, err)
	}
	return nil
}

func (cm *ConfigManager) loadFromEnv(config *AppConfig) {
	if val := os.Getenv("APP_NAME"); val != "" {
		config.AppName = val
	}

	if val := os.Getenv("SCHEMA"); val != "" {
		config.Validator.Schema = val
	}
	if val := os.Getenv("MAX_GAP_MINUTES"); val != "" {
		if minutes, err := strconv.Atoi(val); err == nil {
			config.Validator.MaxGapMinutes = minutes
		}
	}
	if val := os.Getenv("PRICE_OUTLIER_STD"); val != "" {
		if std, err := strconv.ParseFloat(val, 64); err == nil {
			config.Validator.PriceOutlierStd = std
		}
	}

	if val := os.Getenv("TRANSITION_MINUTES_BEFORE"); val != "" {
		if minutes, err := strconv.Atoi(val); err == nil {
			config.Session.MinutesBefore = minutes
		}
	}
	if val := os.Getenv("TRANSITION_MINUTES_AFTER"); val != "" {
		if minutes, err := strconv.Atoi(val); err == nil {
			config.Session.MinutesAfter = minutes
		}
	}

	if val := os.Getenv("FETCH_DATASET"); val != "" {
		config.Fetch.Dataset = val
	}
	if val := os.Getenv("FETCH_STYPE_IN"); val != "" {
		config.Fetch.StypeIn = val
	}
	if val := os.Getenv("FETCH_MAX_ATTEMPTS"); val != "" {
		if attempts, err := strconv.Atoi(val); err == nil {
			config.Fetch.MaxAttempts = attempts
		}
	}
	if val := os.Getenv("FETCH_RETRY_DELAY"); val != "" {
		config.Fetch.RetryDelay = val
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		config.Logging.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		config.Logging.Format = val
	}
	if val := os.Getenv("LOG_OUTPUT"); val != "" {
		config.Logging.Output = val
	}
	if val := os.Getenv("LOG_FILE_PATH"); val != "" {
		config.Logging.FilePath = val
	}
}

func (cm *ConfigManager) validateConfig(config *AppConfig) error {
	if config.Validator.Schema == "" {
		return fmt.Errorf("validator.schema is required")
	}
	if config.Validator.MaxGapMinutes <= 0 {
		return fmt.Errorf("validator.max_gap_minutes must be greater than 0")
	}
	if config.Validator.PriceOutlierStd <= 0 {
		return fmt.Errorf("validator.price_outlier_std must be greater than 0")
	}

	if config.Session.MinutesBefore < 0 {
		return fmt.Errorf("session.minutes_before must be non-negative")
	}
	if config.Session.MinutesAfter < 0 {
		return fmt.Errorf("session.minutes_after must be non-negative")
	}

	if config.Fetch.MaxAttempts <= 0 {
		return fmt.Errorf("fetch.max_attempts must be greater than 0")
	}
	if _, err := time.ParseDuration(config.Fetch.RetryDelay); err != nil {
		return fmt.Errorf("fetch.retry_delay is not a valid duration: %w", err)
	}

	switch config.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	switch config.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text")
	}
	if config.Logging.Output == "file" && config.Logging.FilePath == "" {
		return fmt.Errorf("logging.file_path is required when logging.output is file")
	}

	return nil
}

// RetryDelayDuration parses the configured retry delay.
func (fc FetchConfig) RetryDelayDuration() time.Duration {
	d, err := time.ParseDuration(fc.RetryDelay)
	if err != nil {
		return 2 * time.Second
	}
	return d
}
