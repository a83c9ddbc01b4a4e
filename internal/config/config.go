// Package config provides configuration management for churn evaluation runs
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/paveg/churnscope/internal/validation"
	"gopkg.in/yaml.v3"
)

// Config represents the global configuration for an evaluation run
type Config struct {
	// Evaluation Configuration
	Cutoff       *float64  `json:"cutoff,omitempty" yaml:"cutoff,omitempty"` // Decision threshold; positive iff score > cutoff (nil = default)
	SweepCutoffs []float64 `json:"sweep_cutoffs" yaml:"sweep_cutoffs"`     // Additional cutoffs reported side by side

	// Dataset Configuration
	TestFraction float64 `json:"test_fraction" yaml:"test_fraction"` // Share of rows held out for evaluation
	SplitSeed    uint64  `json:"split_seed" yaml:"split_seed"`       // Seed for the shuffled train/test split
	FeatureSet   string  `json:"feature_set" yaml:"feature_set"`     // Named feature preset (activity, full, significant)

	// Parallel Processing Configuration
	ParallelThreshold int `json:"parallel_threshold" yaml:"parallel_threshold"` // Minimum predictions to trigger a parallel sweep
	WorkerPoolSize    int `json:"worker_pool_size" yaml:"worker_pool_size"`     // Number of worker goroutines (0 = auto-detect)

	// Output Configuration
	OutputDir   string `json:"output_dir" yaml:"output_dir"`     // Directory for plots and HTML reports ("" = none)
	HistoryPath string `json:"history_path" yaml:"history_path"` // SQLite database for run history ("" = disabled)

	// Debugging Configuration
	VerboseLogging    bool `json:"verbose_logging" yaml:"verbose_logging"`       // Enable debug logging
	MetricsCollection bool `json:"metrics_collection" yaml:"metrics_collection"` // Enable per-stage timing
}

// Global configuration instance
var (
	globalConfig Config
	configMutex  sync.RWMutex
)

// Default configuration values
const (
	DefaultCutoff            = 0.5
	DefaultTestFraction      = 0.5
	DefaultSplitSeed         = 7
	DefaultFeatureSet        = "significant"
	DefaultParallelThreshold = 1000
)

// DefaultSweepCutoffs are the cutoffs reported next to the main one.
func DefaultSweepCutoffs() []float64 {
	return []float64{0.1, 0.2, 0.25, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9}
}

// Initialize global configuration with defaults
func init() {
	globalConfig = NewConfig()
}

// NewConfig creates a new configuration with default values
func NewConfig() Config {
	return Config{
		Cutoff:       Float64(DefaultCutoff),
		SweepCutoffs: DefaultSweepCutoffs(),

		TestFraction: DefaultTestFraction,
		SplitSeed:    DefaultSplitSeed,
		FeatureSet:   DefaultFeatureSet,

		ParallelThreshold: DefaultParallelThreshold,
		WorkerPoolSize:    0, // Auto-detect

		VerboseLogging:    false,
		MetricsCollection: false,
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if c.Cutoff != nil {
		if err := validation.ValidateCutoff(*c.Cutoff, "config.Validate"); err != nil {
			return fmt.Errorf("Cutoff must be between 0 and 1, got %g: %w", *c.Cutoff, err)
		}
	}

	for _, cutoff := range c.SweepCutoffs {
		if err := validation.ValidateCutoff(cutoff, "config.Validate"); err != nil {
			return fmt.Errorf("SweepCutoffs must be between 0 and 1, got %g: %w", cutoff, err)
		}
	}

	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		return fmt.Errorf("TestFraction must be between 0 and 1 exclusive, got %g", c.TestFraction)
	}

	if c.ParallelThreshold <= 0 {
		return fmt.Errorf("ParallelThreshold must be positive, got %d", c.ParallelThreshold)
	}

	if c.WorkerPoolSize < 0 {
		return fmt.Errorf("WorkerPoolSize must be non-negative, got %d", c.WorkerPoolSize)
	}

	return nil
}

// WithDefaults returns a new configuration with default values filled in for zero values.
// Only a nil Cutoff is unset; an explicit 0 is kept.
func (c Config) WithDefaults() Config {
	defaults := NewConfig()

	if c.Cutoff == nil {
		c.Cutoff = defaults.Cutoff
	}
	if len(c.SweepCutoffs) == 0 {
		c.SweepCutoffs = defaults.SweepCutoffs
	}
	if c.TestFraction == 0 {
		c.TestFraction = defaults.TestFraction
	}
	if c.SplitSeed == 0 {
		c.SplitSeed = defaults.SplitSeed
	}
	if c.FeatureSet == "" {
		c.FeatureSet = defaults.FeatureSet
	}
	if c.ParallelThreshold == 0 {
		c.ParallelThreshold = defaults.ParallelThreshold
	}

	// Note: Boolean fields are intentionally not set to defaults here
	// This allows distinguishing between explicitly set false and unset values

	return c
}

// ClassificationCutoff returns the configured cutoff, or DefaultCutoff when unset.
func (c Config) ClassificationCutoff() float64 {
	if c.Cutoff == nil {
		return DefaultCutoff
	}
	return *c.Cutoff
}

// Float64 returns a pointer to v, for setting Cutoff.
func Float64(v float64) *float64 {
	return &v
}

// Workers resolves WorkerPoolSize, substituting the CPU count for 0.
func (c Config) Workers() int {
	if c.WorkerPoolSize == 0 {
		return runtime.NumCPU()
	}
	return c.WorkerPoolSize
}

// SetGlobalConfig sets the global configuration
func SetGlobalConfig(config Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = config
}

// GetGlobalConfig returns the current global configuration
func GetGlobalConfig() Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// LoadFromJSON loads configuration from JSON data
func LoadFromJSON(data []byte) (Config, error) {
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing JSON configuration: %w", err)
	}
	return config.WithDefaults(), nil
}

// LoadFromFile loads configuration from a file (supports JSON, YAML)
func LoadFromFile(filename string) (Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", filename, err)
	}

	var config Config
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".json":
		err = json.Unmarshal(data, &config)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		return Config{}, fmt.Errorf("unsupported config file format: %s", ext)
	}

	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", filename, err)
	}

	return config.WithDefaults(), nil
}

// LoadFromEnv loads configuration from environment variables on top of base
func LoadFromEnv(base Config) Config {
	config := base

	if val := os.Getenv("CHURNSCOPE_CUTOFF"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.Cutoff = Float64(parsed)
		}
	}

	if val := os.Getenv("CHURNSCOPE_SWEEP_CUTOFFS"); val != "" {
		if parsed, err := parseFloatList(val); err == nil {
			config.SweepCutoffs = parsed
		}
	}

	if val := os.Getenv("CHURNSCOPE_TEST_FRACTION"); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			config.TestFraction = parsed
		}
	}

	if val := os.Getenv("CHURNSCOPE_SPLIT_SEED"); val != "" {
		if parsed, err := strconv.ParseUint(val, 10, 64); err == nil {
			config.SplitSeed = parsed
		}
	}

	if val := os.Getenv("CHURNSCOPE_FEATURE_SET"); val != "" {
		config.FeatureSet = val
	}

	if val := os.Getenv("CHURNSCOPE_PARALLEL_THRESHOLD"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.ParallelThreshold = parsed
		}
	}

	if val := os.Getenv("CHURNSCOPE_WORKER_POOL_SIZE"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			config.WorkerPoolSize = parsed
		}
	}

	if val := os.Getenv("CHURNSCOPE_OUTPUT_DIR"); val != "" {
		config.OutputDir = val
	}

	if val := os.Getenv("CHURNSCOPE_HISTORY_PATH"); val != "" {
		config.HistoryPath = val
	}

	if val := os.Getenv("CHURNSCOPE_VERBOSE_LOGGING"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.VerboseLogging = parsed
		}
	}

	if val := os.Getenv("CHURNSCOPE_METRICS_COLLECTION"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			config.MetricsCollection = parsed
		}
	}

	return config
}

func parseFloatList(val string) ([]float64, error) {
	parts := strings.Split(val, ",")
	out := make([]float64, 0, len(parts))
	for _, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
