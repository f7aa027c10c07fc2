// Package config provides YAML-based configuration for ravana.
// Configuration is loaded with a layered precedence: defaults → YAML file → env vars.
// Environment variables always win, so existing workflows are unaffected.
//
// File search order:
//  1. --config CLI flag (explicit path)
//  2. RAVANA_CONFIG environment variable
//  3. ~/.ravana/config.yaml
//  4. ./ravana.yaml
//
// If no file is found the system runs entirely from env vars (backwards compatible).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration structure.
// Field names use yaml tags that mirror the env var naming (lowercase, underscored).
type Config struct {
	// Index configures chunking, batching, and the collection.
	Index IndexConfig `yaml:"index"`

	// Embedding configures the embedding provider.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Store selects and configures the vector store backend.
	Store StoreConfig `yaml:"store"`

	// Fetch configures the page fetcher used for web ingestion.
	Fetch FetchConfig `yaml:"fetch"`

	// Server configures the HTTP server.
	Server ServerConfig `yaml:"server"`

	// Logging configures structured logging.
	Logging LoggingConfig `yaml:"logging"`
}

// IndexConfig holds chunking and collection settings.
type IndexConfig struct {
	// Collection is the vector collection name.
	Collection string `yaml:"collection"`
	// Directory is the on-disk location of the local store.
	Directory string `yaml:"directory"`
	// Tokenizer is the token encoding name (e.g. "cl100k_base").
	Tokenizer string `yaml:"tokenizer"`
	// ChunkSize is the token window length per chunk.
	ChunkSize int `yaml:"chunk_size"`
	// ChunkOverlap is the number of tokens shared by consecutive chunks.
	ChunkOverlap int `yaml:"chunk_overlap"`
	// BatchSize is the maximum chunks per embed/insert call.
	BatchSize int `yaml:"batch_size"`
	// DistanceMetric is the similarity metric: cosine, l2, ip.
	DistanceMetric string `yaml:"distance_metric"`
	// ResultsPerQuery is the default number of chunks returned per query.
	ResultsPerQuery int `yaml:"results_per_query"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider selects the embedding backend (ollama, openai, azure).
	Provider string `yaml:"provider"`
	// Model is the embedding model name.
	Model string `yaml:"model"`
	// Dimensions overrides the embedding vector size.
	Dimensions int `yaml:"dimensions"`
	// APIKey is the embedding API key. Prefer env var EMBEDDING_API_KEY.
	APIKey string `yaml:"api_key"`
	// Endpoint is the embedding API endpoint.
	Endpoint string `yaml:"endpoint"`
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	// Backend is "local" (embedded sqlite) or "qdrant".
	Backend string `yaml:"backend"`
	// Qdrant holds Qdrant connection settings, used when Backend is "qdrant".
	Qdrant QdrantConfig `yaml:"qdrant"`
}

// QdrantConfig holds Qdrant vector store settings.
type QdrantConfig struct {
	// Host is the Qdrant server hostname.
	Host string `yaml:"host"`
	// Port is the Qdrant gRPC port.
	Port int `yaml:"port"`
	// APIKey is the Qdrant API key. Prefer env var QDRANT_API_KEY.
	APIKey string `yaml:"api_key"`
	// TLS enables TLS for the Qdrant connection.
	TLS bool `yaml:"tls"`
}

// FetchConfig holds page fetcher settings.
type FetchConfig struct {
	// Concurrency is the maximum number of in-flight page fetches.
	Concurrency int `yaml:"concurrency"`
	// TimeoutSeconds bounds each page fetch.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the bind address.
	Host string `yaml:"host"`
	// Port is the TCP port.
	Port int `yaml:"port"`
	// APIKey is the Bearer token for API authentication. Prefer env var RAVANA_API_KEY.
	APIKey string `yaml:"api_key"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is the log output format: json, text.
	Format string `yaml:"format"`
}

// envMapping maps YAML config fields to their corresponding env var names.
// Only non-empty YAML values are applied; env vars always take precedence.
var envMapping = []struct {
	envKey string
	value  func(*Config) string
}{
	{"INDEX_COLLECTION", func(c *Config) string { return c.Index.Collection }},
	{"INDEX_DIRECTORY", func(c *Config) string { return c.Index.Directory }},
	{"INDEX_TOKENIZER", func(c *Config) string { return c.Index.Tokenizer }},
	{"INDEX_CHUNK_SIZE", func(c *Config) string { return intStr(c.Index.ChunkSize) }},
	{"INDEX_CHUNK_OVERLAP", func(c *Config) string { return intStr(c.Index.ChunkOverlap) }},
	{"INDEX_BATCH_SIZE", func(c *Config) string { return intStr(c.Index.BatchSize) }},
	{"INDEX_DISTANCE_METRIC", func(c *Config) string { return c.Index.DistanceMetric }},
	{"INDEX_RESULTS_PER_QUERY", func(c *Config) string { return intStr(c.Index.ResultsPerQuery) }},
	{"EMBEDDING_PROVIDER", func(c *Config) string { return c.Embedding.Provider }},
	{"EMBEDDING_MODEL", func(c *Config) string { return c.Embedding.Model }},
	{"EMBEDDING_DIMENSIONS", func(c *Config) string { return intStr(c.Embedding.Dimensions) }},
	{"EMBEDDING_API_KEY", func(c *Config) string { return c.Embedding.APIKey }},
	{"EMBEDDING_ENDPOINT", func(c *Config) string { return c.Embedding.Endpoint }},
	{"STORE_BACKEND", func(c *Config) string { return c.Store.Backend }},
	{"QDRANT_HOST", func(c *Config) string { return c.Store.Qdrant.Host }},
	{"QDRANT_PORT", func(c *Config) string { return intStr(c.Store.Qdrant.Port) }},
	{"QDRANT_API_KEY", func(c *Config) string { return c.Store.Qdrant.APIKey }},
	{"QDRANT_TLS", func(c *Config) string { return boolStr(c.Store.Qdrant.TLS) }},
	{"FETCH_CONCURRENCY", func(c *Config) string { return intStr(c.Fetch.Concurrency) }},
	{"FETCH_TIMEOUT_SECONDS", func(c *Config) string { return intStr(c.Fetch.TimeoutSeconds) }},
	{"SERVER_HOST", func(c *Config) string { return c.Server.Host }},
	{"SERVER_PORT", func(c *Config) string { return intStr(c.Server.Port) }},
	{"RAVANA_API_KEY", func(c *Config) string { return c.Server.APIKey }},
	{"LOG_LEVEL", func(c *Config) string { return c.Logging.Level }},
	{"LOG_FORMAT", func(c *Config) string { return c.Logging.Format }},
}

// Load reads a YAML config file and applies non-empty values as environment
// variables. Existing env vars are never overwritten (env always wins).
// Returns the path that was loaded, or empty string if no file was found.
func Load(explicitPath string, log *slog.Logger) (string, error) {
	path := resolveConfigPath(explicitPath)
	if path == "" {
		log.Debug("config: no YAML config file found, using env vars only")
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: failed to read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return "", fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	applied := 0
	for _, m := range envMapping {
		yamlVal := m.value(&cfg)
		if yamlVal == "" {
			continue
		}
		if os.Getenv(m.envKey) != "" {
			continue // env var already set — do not override
		}
		os.Setenv(m.envKey, yamlVal)
		applied++
	}

	log.Info("config: loaded YAML config",
		slog.String("path", path),
		slog.Int("keys_applied", applied),
	)

	return path, nil
}

// resolveConfigPath returns the first config file path that exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}

	if envPath := os.Getenv("RAVANA_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	home, err := os.UserHomeDir()
	if err == nil {
		p := filepath.Join(home, ".ravana", "config.yaml")
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if _, err := os.Stat("ravana.yaml"); err == nil {
		return "ravana.yaml"
	}

	return ""
}

// intStr converts an int to string, returning "" for zero values.
func intStr(v int) string {
	if v == 0 {
		return ""
	}
	return fmt.Sprintf("%d", v)
}

// boolStr converts a bool to string, returning "" for false.
func boolStr(v bool) string {
	if !v {
		return ""
	}
	return "true"
}
