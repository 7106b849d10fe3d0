// Package config loads and validates the pipeline's tunables: extraction,
// correlation, synthesis thresholds, provider preference, cache/queue
// knobs, and database connection settings.
package config

import "time"

// Config is the full set of tunables enumerated in the external interfaces
// section of the governing specification.
type Config struct {
	// Extraction (Tier 1)
	ExtractionModel       string  `yaml:"extraction_model"`
	ExtractionTemperature float64 `yaml:"extraction_temperature" validate:"min=0,max=1"`
	ExtractionMaxTokens   int     `yaml:"extraction_max_tokens" validate:"min=1"`
	ExtractionBatchSize   int     `yaml:"extraction_batch_size" validate:"min=1"`
	ExtractionMaxPasses   int     `yaml:"extraction_max_passes" validate:"min=1"`
	MaxContentChars       int     `yaml:"max_content_chars" validate:"min=1"`
	MinContentWords       int     `yaml:"min_content_words" validate:"min=0"`
	MinConfidence         float64 `yaml:"min_confidence" validate:"min=0,max=1"`
	MinSignificance       float64 `yaml:"min_significance" validate:"min=0,max=1"`

	// Similarity / merge scoring (kept tunable per design decision, not
	// hardcoded — see DESIGN.md open-question record)
	SimilarityThreshold   float64 `yaml:"similarity_threshold" validate:"min=0,max=1"`
	SimilarityThemeWeight float64 `yaml:"similarity_theme_weight"`
	SimilarityPatternWeight float64 `yaml:"similarity_pattern_weight"`
	SimilarityCosineWeight float64 `yaml:"similarity_cosine_weight"`

	// Correlation (Tier 2)
	CorrelationMinCluster       int     `yaml:"correlation_min_cluster" validate:"min=1"`
	CorrelationMaxPasses        int     `yaml:"correlation_max_passes" validate:"min=1"`
	CorrelationYieldThreshold   float64 `yaml:"correlation_yield_threshold"`
	ContradictionMaxPairs       int     `yaml:"contradiction_max_pairs_per_insight" validate:"min=0"`

	// Synthesis (Tier 3)
	SynthesisMinPatterns           int     `yaml:"synthesis_min_patterns" validate:"min=1"`
	SynthesisSignificanceThreshold float64 `yaml:"synthesis_significance_threshold"`

	// LLM router
	ProviderPreference []string      `yaml:"provider_preference"`
	RouterMaxRetries   int           `yaml:"router_max_retries" validate:"min=0"`
	RouterTimeoutMS    int           `yaml:"router_timeout_ms" validate:"min=1"`

	// Response cache
	CacheBackend string        `yaml:"cache_backend"` // "postgres" or "filesystem"
	CacheDir     string        `yaml:"cache_dir"`
	CacheTTL     time.Duration `yaml:"cache_ttl"` // zero means infinite

	// Queue / workers
	WorkerCount      int           `yaml:"worker_count" validate:"min=1"`
	QueueLeaseMS     int64         `yaml:"queue_lease_ms" validate:"min=1"`
	QueueMaxAttempts int           `yaml:"queue_max_attempts" validate:"min=1"`
	QueueBackoffBase time.Duration `yaml:"queue_backoff_base"`
}

// Defaults returns the system's baked-in defaults, overridable by env/YAML.
func Defaults() Config {
	return Config{
		ExtractionModel:       "claude-sonnet-4",
		ExtractionTemperature: 0.3,
		ExtractionMaxTokens:   2000,
		ExtractionBatchSize:   5,
		ExtractionMaxPasses:   2,
		MaxContentChars:       12000,
		MinContentWords:       20,
		MinConfidence:         0.4,
		MinSignificance:       0.3,

		SimilarityThreshold:     0.75,
		SimilarityThemeWeight:   0.4,
		SimilarityPatternWeight: 0.2,
		SimilarityCosineWeight:  0.4,

		CorrelationMinCluster:     3,
		CorrelationMaxPasses:      3,
		CorrelationYieldThreshold: 0.05,
		ContradictionMaxPairs:     8,

		SynthesisMinPatterns:           2,
		SynthesisSignificanceThreshold: 0.5,

		ProviderPreference: []string{"anthropic", "openai", "gemini"},
		RouterMaxRetries:   2,
		RouterTimeoutMS:    30000,

		CacheBackend: "postgres",
		CacheDir:     "./cache",
		CacheTTL:     0,

		WorkerCount:      4,
		QueueLeaseMS:     60000,
		QueueMaxAttempts: 5,
		QueueBackoffBase: 2 * time.Second,
	}
}
