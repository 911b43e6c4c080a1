// Package config provides configuration loading and validation for the
// extraction engine and its CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the recognized configuration surface. All fields are optional
// in the file; missing values fall back to defaults or CLI flags.
type Config struct {
	// Backends, tried in order. Recognized identifiers: "gemini", "openai".
	BackendOrder []string `json:"backend_order,omitempty" validate:"omitempty,dive,oneof=gemini openai"`

	// API keys; also read from GEMINI_API_KEY / OPENAI_API_KEY.
	GeminiAPIKey string `json:"gemini_api_key,omitempty"`
	OpenAIAPIKey string `json:"openai_api_key,omitempty"`

	// Throttling
	MaxConcurrency   int `json:"max_concurrency,omitempty" validate:"omitempty,min=1,max=64"`
	InterCallDelayMs int `json:"inter_call_delay_ms,omitempty" validate:"omitempty,min=0"`

	// Merge tuning
	AIConfidenceFloor float64 `json:"ai_confidence_floor,omitempty" validate:"omitempty,gte=0,lte=1"`

	// Payload size routing
	SizeThresholdBytes int `json:"size_threshold_bytes,omitempty" validate:"omitempty,min=1"`
	HardMaxSizeBytes   int `json:"hard_max_size_bytes,omitempty" validate:"omitempty,min=1"`

	// Persistence; empty means in-memory only.
	DatabaseURL string `json:"database_url,omitempty"`

	Verbose bool `json:"verbose,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		BackendOrder:       []string{"gemini", "openai"},
		MaxConcurrency:     3,
		InterCallDelayMs:   500,
		AIConfidenceFloor:  0.4,
		SizeThresholdBytes: 4 << 20,
		HardMaxSizeBytes:   20 << 20,
	}
}

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return &cfg, nil
}

// FromEnv fills API keys from the environment when the file left them empty.
func (c *Config) FromEnv() {
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.OpenAIAPIKey == "" {
		c.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
}

// Validate checks field constraints and the size-threshold ordering.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if c.SizeThresholdBytes > 0 && c.HardMaxSizeBytes > 0 && c.SizeThresholdBytes > c.HardMaxSizeBytes {
		return fmt.Errorf("config error: 'size_threshold_bytes' must not exceed 'hard_max_size_bytes'")
	}
	return nil
}

// MergeWithDefaults fills unset fields from defaults and returns the merged
// configuration.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c
	if len(result.BackendOrder) == 0 {
		result.BackendOrder = defaults.BackendOrder
	}
	if result.MaxConcurrency == 0 {
		result.MaxConcurrency = defaults.MaxConcurrency
	}
	if result.InterCallDelayMs == 0 {
		result.InterCallDelayMs = defaults.InterCallDelayMs
	}
	if result.AIConfidenceFloor == 0 {
		result.AIConfidenceFloor = defaults.AIConfidenceFloor
	}
	if result.SizeThresholdBytes == 0 {
		result.SizeThresholdBytes = defaults.SizeThresholdBytes
	}
	if result.HardMaxSizeBytes == 0 {
		result.HardMaxSizeBytes = defaults.HardMaxSizeBytes
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.OpenAIAPIKey == "" {
		result.OpenAIAPIKey = defaults.OpenAIAPIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	return result
}

// InterCallDelay returns the inter-call delay as a duration.
func (c *Config) InterCallDelay() time.Duration {
	return time.Duration(c.InterCallDelayMs) * time.Millisecond
}
