// Package config loads application configuration from environment
// variables, with optional .env support.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the analysis pipeline.
type Config struct {
	Pipeline PipelineConfig
	Store    StoreConfig
	OpenAI   OpenAIConfig
}

// PipelineConfig covers analysis defaults and CSV column mapping.
type PipelineConfig struct {
	AnomalyThreshold float64 `validate:"gte=0,lte=1"`
	MaxRefinements   int     `validate:"gte=1"`
	TimestampColumn  string  `validate:"required"`
	PM25Column       string  `validate:"required"`
	PM10Column       string  `validate:"required"`
}

// StoreConfig selects the session store backend.
type StoreConfig struct {
	Backend     string `validate:"oneof=memory sqlite postgres"`
	SQLitePath  string
	PostgresDSN string
}

// OpenAIConfig configures the text-generation service.
type OpenAIConfig struct {
	APIKey         string
	Model          string        `validate:"required"`
	BaseURL        string
	MaxTokens      int           `validate:"gt=0"`
	Temperature    float64       `validate:"gte=0,lte=2"`
	RequestTimeout time.Duration `validate:"gt=0"`
}

// Load reads configuration from the environment. A .env file is honored
// when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Pipeline: PipelineConfig{
			AnomalyThreshold: getEnvAsFloat("AQI_ANOMALY_THRESHOLD", 0.01),
			MaxRefinements:   getEnvAsInt("AQI_MAX_REFINEMENTS", 10),
			TimestampColumn:  getEnvWithDefault("AQI_TIMESTAMP_COLUMN", "Timestamp"),
			PM25Column:       getEnvWithDefault("AQI_PM25_COLUMN", "PM2.5 (µg/m³)"),
			PM10Column:       getEnvWithDefault("AQI_PM10_COLUMN", "PM10 (µg/m³)"),
		},
		Store: StoreConfig{
			Backend:     getEnvWithDefault("AQI_STORE_BACKEND", "sqlite"),
			SQLitePath:  getEnvWithDefault("AQI_SQLITE_PATH", "aqinsight.db"),
			PostgresDSN: getEnvWithDefault("AQI_POSTGRES_DSN", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnvWithDefault("OPENAI_API_KEY", ""),
			Model:          getEnvWithDefault("OPENAI_MODEL", "gpt-4"),
			BaseURL:        getEnvWithDefault("OPENAI_BASE_URL", ""),
			MaxTokens:      getEnvAsInt("OPENAI_MAX_TOKENS", 512),
			Temperature:    getEnvAsFloat("OPENAI_TEMPERATURE", 0.7),
			RequestTimeout: getEnvAsDuration("OPENAI_REQUEST_TIMEOUT", 30*time.Second),
		},
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
