package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Load reads .env from configDir (if present), overlays config.yaml from the
// same directory (if present), overlays RECOG_* environment variables, and
// validates the result. Missing files are not errors — Defaults() covers
// every field.
func Load(configDir string) (*Config, error) {
	if configDir != "" {
		envPath := filepath.Join(configDir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return nil, NewLoadError(envPath, err)
			}
		}
	}

	cfg := Defaults()

	if configDir != "" {
		yamlPath := filepath.Join(configDir, "config.yaml")
		if raw, err := os.ReadFile(yamlPath); err == nil {
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return nil, NewLoadError(yamlPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, NewLoadError(yamlPath, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides lets RECOG_* environment variables override individual
// tunables without a config.yaml, matching the teacher's env-first bootstrap
// style.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RECOG_EXTRACTION_MODEL"); v != "" {
		cfg.ExtractionModel = v
	}
	if v := envFloat("RECOG_EXTRACTION_TEMPERATURE"); v != nil {
		cfg.ExtractionTemperature = *v
	}
	if v := envInt("RECOG_EXTRACTION_MAX_TOKENS"); v != nil {
		cfg.ExtractionMaxTokens = *v
	}
	if v := envFloat("RECOG_MIN_CONFIDENCE"); v != nil {
		cfg.MinConfidence = *v
	}
	if v := envFloat("RECOG_MIN_SIGNIFICANCE"); v != nil {
		cfg.MinSignificance = *v
	}
	if v := envFloat("RECOG_SIMILARITY_THRESHOLD"); v != nil {
		cfg.SimilarityThreshold = *v
	}
	if v := os.Getenv("RECOG_PROVIDER_PREFERENCE"); v != "" {
		cfg.ProviderPreference = strings.Split(v, ",")
	}
	if v := os.Getenv("RECOG_CACHE_BACKEND"); v != "" {
		cfg.CacheBackend = v
	}
	if v := os.Getenv("RECOG_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := envInt("RECOG_WORKER_COUNT"); v != nil {
		cfg.WorkerCount = *v
	}
	if v := envInt64("RECOG_QUEUE_LEASE_MS"); v != nil {
		cfg.QueueLeaseMS = *v
	}
	if v := os.Getenv("RECOG_ROUTER_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.RouterTimeoutMS = ms
		}
	}
}

func envFloat(key string) *float64 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

func envInt(key string) *int {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func envInt64(key string) *int64 {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil
	}
	return &n
}

// Validate runs struct-tag validation plus a handful of cross-field checks
// the validator library can't express (weight sums, non-empty slices).
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return NewValidationError("<struct>", err)
	}
	if len(c.ProviderPreference) == 0 {
		return NewValidationError("provider_preference", fmt.Errorf("must list at least one provider"))
	}
	weightSum := c.SimilarityThemeWeight + c.SimilarityPatternWeight + c.SimilarityCosineWeight
	if weightSum <= 0 {
		return NewValidationError("similarity_*_weight", fmt.Errorf("weights must sum to a positive value, got %v", weightSum))
	}
	if c.QueueBackoffBase <= 0 {
		return NewValidationError("queue_backoff_base", fmt.Errorf("must be positive"))
	}
	if c.RouterTimeoutMS <= 0 {
		return NewValidationError("router_timeout_ms", fmt.Errorf("must be positive"))
	}
	return nil
}

// RouterTimeout returns the configured router timeout as a time.Duration.
func (c *Config) RouterTimeout() time.Duration {
	return time.Duration(c.RouterTimeoutMS) * time.Millisecond
}
