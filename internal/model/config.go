package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by every configuration validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the complete loanrecon configuration
type Config struct {
	Segment     SegmentConfig     `yaml:"segment" mapstructure:"segment"`
	Extraction  ExtractionConfig  `yaml:"extraction" mapstructure:"extraction"`
	Retry       RetryConfig       `yaml:"retry" mapstructure:"retry"`
	Confidence  ConfidenceConfig  `yaml:"confidence" mapstructure:"confidence"`
	Dedup       DedupConfig       `yaml:"dedup" mapstructure:"dedup"`
	Alignment   AlignmentConfig   `yaml:"alignment" mapstructure:"alignment"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Logging     LoggingConfig     `yaml:"logging" mapstructure:"logging"`
}

// SegmentConfig controls whole-document chunking prior to extraction
type SegmentConfig struct {
	MaxChars     int `yaml:"max_chars" mapstructure:"max_chars"`
	OverlapChars int `yaml:"overlap_chars" mapstructure:"overlap_chars"`
}

// ExtractionConfig is passed through to the extraction strategies
type ExtractionConfig struct {
	Method        string `yaml:"method" mapstructure:"method"`           // auto, primary, secondary
	Passes        int    `yaml:"passes" mapstructure:"passes"`           // Extraction passes per chunk (2-5)
	MaxWorkers    int    `yaml:"max_workers" mapstructure:"max_workers"` // Worker hint for the strategy (1-50)
	ChunkChars    int    `yaml:"chunk_chars" mapstructure:"chunk_chars"` // Strategy-side chunk size (500-5000)
	StandardModel string `yaml:"standard_model" mapstructure:"standard_model"`
	ComplexModel  string `yaml:"complex_model" mapstructure:"complex_model"`
}

// RetryConfig controls the primary strategy retry wrapper
type RetryConfig struct {
	Attempts       int           `yaml:"attempts" mapstructure:"attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier" mapstructure:"multiplier"`
	Jitter         bool          `yaml:"jitter" mapstructure:"jitter"`
}

// ConfidenceConfig holds the additive confidence model constants
type ConfidenceConfig struct {
	Base             float64 `yaml:"base" mapstructure:"base"`
	NameBonus        float64 `yaml:"name_bonus" mapstructure:"name_bonus"`
	AddressBonus     float64 `yaml:"address_bonus" mapstructure:"address_bonus"`
	RequiredCap      float64 `yaml:"required_cap" mapstructure:"required_cap"`
	OptionalBonus    float64 `yaml:"optional_bonus" mapstructure:"optional_bonus"`
	OptionalCap      float64 `yaml:"optional_cap" mapstructure:"optional_cap"`
	MultiSourceBonus float64 `yaml:"multi_source_bonus" mapstructure:"multi_source_bonus"`
	ValidationBonus  float64 `yaml:"validation_bonus" mapstructure:"validation_bonus"`
	Max              float64 `yaml:"max" mapstructure:"max"`
	ReviewThreshold  float64 `yaml:"review_threshold" mapstructure:"review_threshold"`
}

// DedupConfig holds the name similarity thresholds (0-100) for duplicate detection
type DedupConfig struct {
	NameWithZip float64 `yaml:"name_with_zip" mapstructure:"name_with_zip"`
	NameOnly    float64 `yaml:"name_only" mapstructure:"name_only"`
	NameWithSSN float64 `yaml:"name_with_ssn4" mapstructure:"name_with_ssn4"`
}

// AlignmentConfig controls source span verification
type AlignmentConfig struct {
	VerifyThreshold float64 `yaml:"verify_threshold" mapstructure:"verify_threshold"`
}

// LLMConfig configures the provider behind the primary extraction strategy
type LLMConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, "" (disabled)
	APIKey            string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout           int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
	HTTPProxy         string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy           string  `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig controls the extraction result cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// ConcurrencyConfig controls cross-document parallelism in batch mode
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json, console
}

// DefaultConfig returns the tuned defaults
func DefaultConfig() *Config {
	return &Config{
		Segment: SegmentConfig{
			MaxChars:     16000,
			OverlapChars: 800,
		},
		Extraction: ExtractionConfig{
			Method:        string(MethodAuto),
			Passes:        2,
			MaxWorkers:    10,
			ChunkChars:    1000,
			StandardModel: "gpt-4o-mini",
			ComplexModel:  "gpt-4o",
		},
		Retry: RetryConfig{
			Attempts:       3,
			InitialBackoff: 4 * time.Second,
			MaxBackoff:     60 * time.Second,
			Multiplier:     2,
			Jitter:         true,
		},
		Confidence: DefaultConfidenceConfig(),
		Dedup: DedupConfig{
			NameWithZip: 90,
			NameOnly:    95,
			NameWithSSN: 80,
		},
		Alignment: AlignmentConfig{
			VerifyThreshold: 0.85,
		},
		LLM: LLMConfig{
			Timeout:           60,
			MaxTokens:         4096,
			RequestsPerSecond: 1,
			Burst:             5,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".loanrecon-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultConfidenceConfig returns the confidence constants the review threshold was tuned against
func DefaultConfidenceConfig() ConfidenceConfig {
	return ConfidenceConfig{
		Base:             0.5,
		NameBonus:        0.1,
		AddressBonus:     0.1,
		RequiredCap:      0.2,
		OptionalBonus:    0.05,
		OptionalCap:      0.15,
		MultiSourceBonus: 0.1,
		ValidationBonus:  0.15,
		Max:              1.0,
		ReviewThreshold:  0.7,
	}
}

// Validate checks every bounded setting
func (c *Config) Validate() error {
	if c.Segment.MaxChars <= 0 {
		return fmt.Errorf("%w: segment.max_chars must be > 0, got %d", ErrInvalidConfig, c.Segment.MaxChars)
	}
	if c.Segment.OverlapChars < 0 || c.Segment.OverlapChars >= c.Segment.MaxChars {
		return fmt.Errorf("%w: segment.overlap_chars must be in [0, %d), got %d", ErrInvalidConfig, c.Segment.MaxChars, c.Segment.OverlapChars)
	}
	if _, ok := ParseExtractionMethod(c.Extraction.Method); !ok {
		return fmt.Errorf("%w: extraction.method must be auto, primary or secondary, got %q", ErrInvalidConfig, c.Extraction.Method)
	}
	if c.Extraction.Passes < 2 || c.Extraction.Passes > 5 {
		return fmt.Errorf("%w: extraction.passes must be in [2,5], got %d", ErrInvalidConfig, c.Extraction.Passes)
	}
	if c.Extraction.MaxWorkers < 1 || c.Extraction.MaxWorkers > 50 {
		return fmt.Errorf("%w: extraction.max_workers must be in [1,50], got %d", ErrInvalidConfig, c.Extraction.MaxWorkers)
	}
	if c.Extraction.ChunkChars < 500 || c.Extraction.ChunkChars > 5000 {
		return fmt.Errorf("%w: extraction.chunk_chars must be in [500,5000], got %d", ErrInvalidConfig, c.Extraction.ChunkChars)
	}
	if c.Retry.Attempts < 1 {
		return fmt.Errorf("%w: retry.attempts must be >= 1, got %d", ErrInvalidConfig, c.Retry.Attempts)
	}
	if c.Retry.InitialBackoff <= 0 || c.Retry.MaxBackoff < c.Retry.InitialBackoff {
		return fmt.Errorf("%w: retry backoff must satisfy 0 < initial_backoff <= max_backoff", ErrInvalidConfig)
	}
	if c.Retry.Multiplier < 1 {
		return fmt.Errorf("%w: retry.multiplier must be >= 1, got %g", ErrInvalidConfig, c.Retry.Multiplier)
	}
	if t := c.Confidence.ReviewThreshold; t < 0 || t > 1 {
		return fmt.Errorf("%w: confidence.review_threshold must be in [0,1], got %g", ErrInvalidConfig, t)
	}
	if c.Confidence.Max <= 0 || c.Confidence.Max > 1 {
		return fmt.Errorf("%w: confidence.max must be in (0,1], got %g", ErrInvalidConfig, c.Confidence.Max)
	}
	for name, v := range map[string]float64{
		"dedup.name_with_zip":  c.Dedup.NameWithZip,
		"dedup.name_only":      c.Dedup.NameOnly,
		"dedup.name_with_ssn4": c.Dedup.NameWithSSN,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("%w: %s must be in [0,100], got %g", ErrInvalidConfig, name, v)
		}
	}
	if t := c.Alignment.VerifyThreshold; t < 0 || t > 1 {
		return fmt.Errorf("%w: alignment.verify_threshold must be in [0,1], got %g", ErrInvalidConfig, t)
	}
	if c.Concurrency.Workers < 1 {
		return fmt.Errorf("%w: concurrency.workers must be >= 1, got %d", ErrInvalidConfig, c.Concurrency.Workers)
	}
	return nil
}
