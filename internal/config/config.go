// Package config provides configuration loading and management for Forgeline.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Forgeline configuration
type Config struct {
	Model    ModelConfig    `yaml:"model"`
	Database DatabaseConfig `yaml:"database"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Publish  PublishConfig  `yaml:"publish"`
	NATS     NATSConfig     `yaml:"nats"`
}

// ModelConfig configures the LLM model settings
type ModelConfig struct {
	// Provider selects the completion backend: anthropic, openai or gemini
	Provider string `yaml:"provider"`
	// Name is the provider-side model identifier
	Name string `yaml:"name"`
	// Temperature controls randomness (0.0-1.0, default: 0.2)
	Temperature float32 `yaml:"temperature"`
	// MaxTokens caps a single completion response
	MaxTokens int `yaml:"max_tokens"`
}

// DatabaseConfig configures the session store
type DatabaseConfig struct {
	// Path is the SQLite database file (empty = platform default)
	Path string `yaml:"path"`
}

// PipelineConfig configures the generation pipeline
type PipelineConfig struct {
	// MaxWorkers bounds simultaneously in-flight file workers
	MaxWorkers int `yaml:"max_workers"`
	// ManifestMaxTokens caps the manifest-planning completion
	ManifestMaxTokens int `yaml:"manifest_max_tokens"`
}

// PublishConfig configures the source-control publisher
type PublishConfig struct {
	// WorkDir is where target repositories are cloned
	WorkDir string `yaml:"workdir"`
	// RemoteBase is the host prefix (default: https://github.com)
	RemoteBase  string `yaml:"remote_base"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// NATSConfig configures the optional NATS event sink
type NATSConfig struct {
	// URL is the NATS server URL (empty = log events locally)
	URL string `yaml:"url"`
	// SubjectPrefix namespaces published events
	SubjectPrefix string `yaml:"subject_prefix"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Provider:    "anthropic",
			Name:        "claude-sonnet-4-20250514",
			Temperature: 0.2,
			MaxTokens:   8192,
		},
		Database: DatabaseConfig{
			Path: "", // Platform default
		},
		Pipeline: PipelineConfig{
			MaxWorkers:        4,
			ManifestMaxTokens: 4096,
		},
		Publish: PublishConfig{
			WorkDir:    ".forgeline/repos",
			RemoteBase: "https://github.com",
		},
		NATS: NATSConfig{
			URL:           "",
			SubjectPrefix: "forgeline.sessions",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Model.Provider == "" {
		return fmt.Errorf("model.provider is required")
	}
	if c.Model.Name == "" {
		return fmt.Errorf("model.name is required")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 1 {
		return fmt.Errorf("model.temperature must be between 0 and 1")
	}
	if c.Pipeline.MaxWorkers < 1 {
		return fmt.Errorf("pipeline.max_workers must be at least 1")
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
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Load returns the configuration at path, or defaults when path is empty or
// the file does not exist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "forgeline.yaml"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	return LoadFromFile(path)
}
