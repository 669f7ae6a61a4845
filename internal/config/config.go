package config

import (
	"os"
	"strconv"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Data     DataConfig
	Analysis AnalysisConfig
}

// DatabaseConfig holds report persistence settings. Persistence is
// optional: an empty URL disables it.
type DatabaseConfig struct {
	URL string
}

// Enabled reports whether report persistence is configured
func (c DatabaseConfig) Enabled() bool { return c.URL != "" }

// DataConfig holds input file settings
type DataConfig struct {
	FilePath string
	Sheet    string
}

// AnalysisConfig holds pipeline tuning knobs
type AnalysisConfig struct {
	VerdictThreshold float64
	TrimProportion   float64
	PairWorkers      int
}

// Load reads configuration from environment variables, applying defaults
func Load() (*Config, error) {
	return &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Data: DataConfig{
			FilePath: getEnv("DATA_FILE", ""),
			Sheet:    getEnv("DATA_SHEET", "Sheet1"),
		},
		Analysis: AnalysisConfig{
			VerdictThreshold: getEnvFloat("VERDICT_THRESHOLD", 0.10),
			TrimProportion:   getEnvFloat("TRIM_PROPORTION", 0.10),
			PairWorkers:      getEnvInt("PAIR_WORKERS", 4),
		},
	}, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
