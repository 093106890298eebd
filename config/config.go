// Package config provides configuration loading and management for Tribunal.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Tribunal configuration
type Config struct {
	Model      ModelConfig      `yaml:"model"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	NATS       NATSConfig       `yaml:"nats"`
	Governor   GovernorConfig   `yaml:"governor"`
	Review     ReviewConfig     `yaml:"review"`
	Server     ServerConfig     `yaml:"server"`
}

// ModelConfig configures the generation endpoint
type ModelConfig struct {
	// Provider is the wire format to speak ("openai" or "gemini")
	Provider string `yaml:"provider"`
	// Endpoint is the chat completions URL
	Endpoint string `yaml:"endpoint"`
	// Name is the model to request (e.g., "gpt-4o-mini")
	Name string `yaml:"name"`
	// Temperature controls randomness (0.0-1.0, default: 0.3)
	Temperature float64 `yaml:"temperature"`
	// Timeout is the maximum time to wait for model responses
	Timeout time.Duration `yaml:"timeout"`
}

// EmbeddingsConfig configures the embedding endpoint. An empty endpoint
// disables precedent retrieval.
type EmbeddingsConfig struct {
	// Endpoint is the OpenAI-compatible embeddings URL
	Endpoint string `yaml:"endpoint"`
	// Model is the embedding model name
	Model string `yaml:"model"`
}

// NATSConfig configures the NATS connection
type NATSConfig struct {
	// URL is the NATS server URL (empty = in-memory stores, no persistence)
	URL string `yaml:"url"`
}

// GovernorConfig configures call limiting and retry
type GovernorConfig struct {
	// MaxAttempts is the total attempts per call including the first
	MaxAttempts int `yaml:"max_attempts"`
	// BackoffBase is the first retry delay
	BackoffBase time.Duration `yaml:"backoff_base"`
	// MaxBackoff caps the retry delay
	MaxBackoff time.Duration `yaml:"max_backoff"`
	// SessionWidth is the concurrent-call limit per session
	SessionWidth int `yaml:"session_width"`
	// EmbeddingWidth is the concurrent-call limit for embedding calls
	EmbeddingWidth int `yaml:"embedding_width"`
}

// ReviewConfig configures review defaults
type ReviewConfig struct {
	// Mode is the default review mode ("full" or "short")
	Mode string `yaml:"mode"`
	// HistoryN is how many precedents enrichment retrieves
	HistoryN int `yaml:"history_n"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	// Addr is the listen address (default: ":8080")
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:    "openai",
			Endpoint:    "http://localhost:11434/v1/chat/completions",
			Name:        "qwen2.5:32b",
			Temperature: 0.3,
			Timeout:     5 * time.Minute,
		},
		Embeddings: EmbeddingsConfig{
			Endpoint: "",
			Model:    "text-embedding-3-small",
		},
		NATS: NATSConfig{
			URL: "",
		},
		Governor: GovernorConfig{
			MaxAttempts:    3,
			BackoffBase:    2 * time.Second,
			MaxBackoff:     30 * time.Second,
			SessionWidth:   1,
			EmbeddingWidth: 2,
		},
		Review: ReviewConfig{
			Mode:     "full",
			HistoryN: 3,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Model.Provider == "" {
		return fmt.Errorf("model.provider is required")
	}
	if c.Model.Endpoint == "" {
		return fmt.Errorf("model.endpoint is required")
	}
	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 1 {
		return fmt.Errorf("model.temperature must be between 0 and 1")
	}
	if c.Governor.MaxAttempts < 1 {
		return fmt.Errorf("governor.max_attempts must be at least 1")
	}
	if c.Review.Mode != "full" && c.Review.Mode != "short" {
		return fmt.Errorf("review.mode must be %q or %q", "full", "short")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	// Model
	if other.Model.Provider != "" {
		c.Model.Provider = other.Model.Provider
	}
	if other.Model.Endpoint != "" {
		c.Model.Endpoint = other.Model.Endpoint
	}
	if other.Model.Name != "" {
		c.Model.Name = other.Model.Name
	}
	if other.Model.Temperature != 0 {
		c.Model.Temperature = other.Model.Temperature
	}
	if other.Model.Timeout != 0 {
		c.Model.Timeout = other.Model.Timeout
	}

	// Embeddings
	if other.Embeddings.Endpoint != "" {
		c.Embeddings.Endpoint = other.Embeddings.Endpoint
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}

	// NATS
	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}

	// Governor
	if other.Governor.MaxAttempts != 0 {
		c.Governor.MaxAttempts = other.Governor.MaxAttempts
	}
	if other.Governor.BackoffBase != 0 {
		c.Governor.BackoffBase = other.Governor.BackoffBase
	}
	if other.Governor.MaxBackoff != 0 {
		c.Governor.MaxBackoff = other.Governor.MaxBackoff
	}
	if other.Governor.SessionWidth != 0 {
		c.Governor.SessionWidth = other.Governor.SessionWidth
	}
	if other.Governor.EmbeddingWidth != 0 {
		c.Governor.EmbeddingWidth = other.Governor.EmbeddingWidth
	}

	// Review
	if other.Review.Mode != "" {
		c.Review.Mode = other.Review.Mode
	}
	if other.Review.HistoryN != 0 {
		c.Review.HistoryN = other.Review.HistoryN
	}

	// Server
	if other.Server.Addr != "" {
		c.Server.Addr = other.Server.Addr
	}
}
