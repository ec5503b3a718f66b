// Package config provides configuration management functionality.
//
// Configuration is read from the environment exactly once at process start
// into an immutable Config record; no other component reads env vars
// directly.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	DataDir  string // base directory for the cache and runs databases
	ModelDir string // directory of fitted surrogate model files
	Port     int
	LogLevel string
	DevMode  bool

	// UseMockData forces the deterministic fallback hazard paths and
	// synthetic data everywhere (ATLAS_USE_MOCK_DATA).
	UseMockData bool

	// Default scenario magnitudes for batch runs.
	ScenarioYear     int
	SLRProjectionM   float64
	RainIntensityPct float64 // fraction; the env value is an integer percent

	// Per-run financial overrides; zero means "use project defaults".
	Financial FinancialDefaults

	// Upstream hazard API. Empty base URL means fallback-only.
	HazardBaseURL    string
	HazardTimeoutSec int

	// Optional S3-compatible bucket for surrogate model artifacts.
	Models ModelArtifactConfig
}

// FinancialDefaults carries the FINANCIAL_* overrides. DiscountRate is a
// fraction (0.10, not 10).
type FinancialDefaults struct {
	CapexUSD     float64
	OpexUSD      float64
	DiscountRate float64
	Years        int
}

// ModelArtifactConfig configures the startup model fetch. An empty Bucket
// disables it.
type ModelArtifactConfig struct {
	Bucket    string
	Prefix    string
	Endpoint  string // S3-compatible endpoint URL, empty for AWS
	Region    string
	AccessKey string
	SecretKey string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is honoured when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dataDir := getEnv("ATLAS_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:          absDataDir,
		ModelDir:         getEnv("ATLAS_MODEL_DIR", filepath.Join(absDataDir, "models")),
		Port:             getEnvAsInt("ATLAS_PORT", 8000),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		DevMode:          getEnvAsBool("DEV_MODE", false),
		UseMockData:      getEnvAsBool("ATLAS_USE_MOCK_DATA", false),
		ScenarioYear:     getEnvAsInt("ATLAS_SCENARIO_YEAR", 2050),
		SLRProjectionM:   getEnvAsFloat("ATLAS_SLR_PROJECTION_M", 0.5),
		RainIntensityPct: getEnvAsFloat("ATLAS_RAIN_INTENSITY_INCREASE_PCT", 20) / 100.0,
		Financial: FinancialDefaults{
			CapexUSD:     getEnvAsFloat("FINANCIAL_CAPEX", 0),
			OpexUSD:      getEnvAsFloat("FINANCIAL_OPEX", 0),
			DiscountRate: getEnvAsFloat("FINANCIAL_DISCOUNT_RATE", 0),
			Years:        getEnvAsInt("FINANCIAL_YEARS", 0),
		},
		HazardBaseURL:    getEnv("ATLAS_HAZARD_API_URL", ""),
		HazardTimeoutSec: getEnvAsInt("ATLAS_HAZARD_TIMEOUT_SEC", 10),
		Models: ModelArtifactConfig{
			Bucket:    getEnv("ATLAS_MODEL_BUCKET", ""),
			Prefix:    getEnv("ATLAS_MODEL_PREFIX", "models/"),
			Endpoint:  getEnv("ATLAS_MODEL_ENDPOINT", ""),
			Region:    getEnv("ATLAS_MODEL_REGION", "auto"),
			AccessKey: getEnv("ATLAS_MODEL_ACCESS_KEY", ""),
			SecretKey: getEnv("ATLAS_MODEL_SECRET_KEY", ""),
		},
	}

	// JWT_SECRET_KEY is intentionally not read here: it belongs to the auth
	// surface, the core ignores it.

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks bounds on the loaded configuration.
func (c *Config) Validate() error {
	if c.ScenarioYear < 2024 || c.ScenarioYear > 2100 {
		return fmt.Errorf("ATLAS_SCENARIO_YEAR %d outside [2024, 2100]", c.ScenarioYear)
	}
	if c.SLRProjectionM < 0 {
		return fmt.Errorf("ATLAS_SLR_PROJECTION_M must be non-negative")
	}
	if c.Financial.DiscountRate != 0 && (c.Financial.DiscountRate < 0 || c.Financial.DiscountRate >= 1) {
		return fmt.Errorf("FINANCIAL_DISCOUNT_RATE must be a fraction in [0, 1)")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
