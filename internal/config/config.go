// Package config provides configuration loading for total-recall.
//
// Configuration is loaded from a YAML document with environment-variable
// overrides and sensible defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Config holds the complete total-recall configuration.
type Config struct {
	Sources    SourcesConfig
	Embedding  EmbeddingConfig
	Search     SearchConfig
	Memory     MemoryConfig
	Logging    LoggingConfig
}

// LoggingConfig mirrors the shape consumed by internal/logging.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// SourcesConfig configures which conversation stores are read.
type SourcesConfig struct {
	CLI CLISourceConfig `koanf:"cli"`
	IDE IDESourceConfig `koanf:"ide"`
}

// CLISourceConfig configures the relational (SQLite) conversation store reader.
type CLISourceConfig struct {
	Enabled bool     `koanf:"enabled"`
	Paths   []string `koanf:"paths"`
}

// IDESourceConfig configures the chat-document directory reader.
type IDESourceConfig struct {
	Enabled  bool     `koanf:"enabled"`
	Patterns []string `koanf:"patterns"`
}

// EmbeddingConfig configures the embedding provider and on-disk cache.
type EmbeddingConfig struct {
	Provider string `koanf:"provider"` // "http" or "fastembed"
	Model    string `koanf:"model"`
	BaseURL  string `koanf:"base_url"` // only used by the "http" provider
	CacheDir string `koanf:"cache_dir"`
	// CacheLockTimeoutSeconds bounds how long a cache save waits on the
	// cross-process advisory lock before giving up. Zero uses the index
	// package's own default.
	CacheLockTimeoutSeconds int `koanf:"cache_lock_timeout_seconds"`
}

// SearchConfig configures default query parameters.
type SearchConfig struct {
	DefaultThreshold      float64 `koanf:"default_threshold"`
	DefaultMaxResults     int     `koanf:"default_max_results"`
	DefaultContextWindow  int     `koanf:"default_context_window"`
	MaxContentLength      int     `koanf:"max_content_length"`
}

// MemoryConfig configures the embedding-cache memory budget.
type MemoryConfig struct {
	Fraction   float64 `koanf:"fraction"` // fraction of physical RAM, default 0.33
	LimitMB    int     `koanf:"limit_mb"` // explicit megabyte limit; overrides Fraction when > 0
	NoLimit    bool    `koanf:"no_limit"` // disables budget enforcement entirely
}

// Default returns the hardcoded baseline configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Sources: SourcesConfig{
			CLI: CLISourceConfig{
				Enabled: true,
				Paths:   []string{home + "/.local/share/total-recall/cli-sessions.db"},
			},
			IDE: IDESourceConfig{
				Enabled:  true,
				Patterns: []string{home + "/.kiro/chat-sessions/*/*.json"},
			},
		},
		Embedding: EmbeddingConfig{
			Provider:                "fastembed",
			Model:                   "BAAI/bge-small-en-v1.5",
			BaseURL:                 "http://localhost:8081",
			CacheDir:                "",
			CacheLockTimeoutSeconds: 10,
		},
		Search: SearchConfig{
			DefaultThreshold:     0.2,
			DefaultMaxResults:    10,
			DefaultContextWindow: 3,
			MaxContentLength:     32 * 1024,
		},
		Memory: MemoryConfig{
			Fraction: 0.33,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Search.DefaultThreshold < 0 || c.Search.DefaultThreshold > 1 {
		return fmt.Errorf("search.default_threshold must be in [0,1], got %v", c.Search.DefaultThreshold)
	}
	if c.Search.DefaultMaxResults < 1 {
		return fmt.Errorf("search.default_max_results must be >= 1, got %d", c.Search.DefaultMaxResults)
	}
	if c.Search.DefaultContextWindow < 0 {
		return fmt.Errorf("search.default_context_window must be >= 0, got %d", c.Search.DefaultContextWindow)
	}
	if c.Search.MaxContentLength <= 0 {
		return fmt.Errorf("search.max_content_length must be > 0, got %d", c.Search.MaxContentLength)
	}
	switch c.Embedding.Provider {
	case "http", "fastembed":
	default:
		return fmt.Errorf("embedding.provider must be 'http' or 'fastembed', got %q", c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		return errors.New("embedding.model is required")
	}
	if c.Embedding.CacheLockTimeoutSeconds < 0 {
		return fmt.Errorf("embedding.cache_lock_timeout_seconds must be >= 0, got %d", c.Embedding.CacheLockTimeoutSeconds)
	}
	if !c.Memory.NoLimit {
		if c.Memory.LimitMB <= 0 && (c.Memory.Fraction <= 0 || c.Memory.Fraction > 1) {
			return fmt.Errorf("memory.fraction must be in (0,1] when memory.limit_mb is not set, got %v", c.Memory.Fraction)
		}
	}
	return nil
}

// applyEnvOverrides applies the two documented special-cased environment
// variables on top of whatever the YAML/env-provider pass produced. These
// are not part of the regular SECTION_FIELD mapping because they replace
// (rather than merge into) the MemoryConfig decision.
func applyEnvOverrides(c *Config) error {
	if v := os.Getenv("KIRO_RECALL_NO_MEMORY_LIMIT"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid KIRO_RECALL_NO_MEMORY_LIMIT: %w", err)
		}
		c.Memory.NoLimit = enabled
	}
	if v := os.Getenv("KIRO_RECALL_MEMORY_LIMIT_MB"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid KIRO_RECALL_MEMORY_LIMIT_MB: %w", err)
		}
		c.Memory.LimitMB = limit
		c.Memory.NoLimit = false
	}
	return nil
}
