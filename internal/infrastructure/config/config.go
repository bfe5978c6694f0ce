// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	thresholds := cfg.Matching.Thresholds()
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/settleworks/recon-backend/internal/domain/recon"
)

// Config represents the entire application configuration
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Matching      MatchingConfig      `yaml:"matching"`
	Batch         BatchConfig         `yaml:"batch"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// MatchingConfig holds threshold overrides for the reconciliation
// engine. Zero values fall back to the engine defaults, so a config
// file only needs to name the knobs it changes.
type MatchingConfig struct {
	StrongMatch             float64 `yaml:"strong_match"`
	ModerateMatch           float64 `yaml:"moderate_match"`
	WeakMatch               float64 `yaml:"weak_match"`
	DateToleranceDays       int     `yaml:"date_tolerance_days"`
	AmountTolerancePercent  float64 `yaml:"amount_tolerance_percent"`
	FuzzySearchWindowMonths int     `yaml:"fuzzy_search_window_months"`
	FallbackConfidenceCap   float64 `yaml:"fallback_confidence_cap"`
	FallbackDateWeight      float64 `yaml:"fallback_date_weight"`
	FallbackAmountWeight    float64 `yaml:"fallback_amount_weight"`
}

// Thresholds converts the config section into engine thresholds,
// filling unset fields from the defaults.
func (m MatchingConfig) Thresholds() recon.MatchingThresholds {
	t := recon.DefaultThresholds()
	if m.StrongMatch > 0 {
		t.StrongMatch = m.StrongMatch
	}
	if m.ModerateMatch > 0 {
		t.ModerateMatch = m.ModerateMatch
	}
	if m.WeakMatch > 0 {
		t.WeakMatch = m.WeakMatch
	}
	if m.DateToleranceDays > 0 {
		t.DateToleranceDays = m.DateToleranceDays
	}
	if m.AmountTolerancePercent > 0 {
		t.AmountTolerancePercent = m.AmountTolerancePercent
	}
	if m.FuzzySearchWindowMonths > 0 {
		t.FuzzySearchWindowMonths = m.FuzzySearchWindowMonths
	}
	if m.FallbackConfidenceCap > 0 {
		t.FallbackConfidenceCap = m.FallbackConfidenceCap
	}
	if m.FallbackDateWeight > 0 {
		t.FallbackDateWeight = m.FallbackDateWeight
	}
	if m.FallbackAmountWeight > 0 {
		t.FallbackAmountWeight = m.FallbackAmountWeight
	}
	return t
}

// BatchConfig holds batch processing settings
type BatchConfig struct {
	// Workers bounds concurrent ledger queries during a batch run
	Workers int `yaml:"workers"`
}

// APIConfig holds HTTP server settings
type APIConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${RECON_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	return &Config{
		Storage: StorageConfig{
			DatabasePath: getEnv("RECON_DB_PATH", "recon.db"),
		},
		Batch: BatchConfig{
			Workers: getEnvInt("RECON_BATCH_WORKERS", 4),
		},
		API: APIConfig{
			Port:           getEnvInt("RECON_API_PORT", 8080),
			AllowedOrigins: getEnvList("RECON_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnvWithPath("config.yaml")
}

// LoadOrEnvWithPath tries to load from specified path, falls back to environment variables
func LoadOrEnvWithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if result, err := strconv.Atoi(val); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvList retrieves a comma-separated environment variable with a fallback default
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}

	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
