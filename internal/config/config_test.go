package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	path, err := Load("/nonexistent/path/config.yaml", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
index:
  collection: docs
  directory: /var/lib/ravana
  tokenizer: cl100k_base
  chunk_size: 256
  chunk_overlap: 32
  batch_size: 100
  distance_metric: cosine
  results_per_query: 5
embedding:
  provider: ollama
  model: nomic-embed-text
store:
  backend: qdrant
  qdrant:
    host: qdrant.internal
    port: 6334
logging:
  level: debug
  format: text
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Clear env vars that the YAML should set.
	envKeys := []string{
		"INDEX_COLLECTION", "INDEX_DIRECTORY", "INDEX_TOKENIZER",
		"INDEX_CHUNK_SIZE", "INDEX_CHUNK_OVERLAP", "INDEX_BATCH_SIZE",
		"INDEX_DISTANCE_METRIC", "INDEX_RESULTS_PER_QUERY",
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL",
		"STORE_BACKEND", "QDRANT_HOST", "QDRANT_PORT",
		"LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	log := slog.Default()
	loaded, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"INDEX_COLLECTION":        "docs",
		"INDEX_DIRECTORY":         "/var/lib/ravana",
		"INDEX_TOKENIZER":         "cl100k_base",
		"INDEX_CHUNK_SIZE":        "256",
		"INDEX_CHUNK_OVERLAP":     "32",
		"INDEX_BATCH_SIZE":        "100",
		"INDEX_DISTANCE_METRIC":   "cosine",
		"INDEX_RESULTS_PER_QUERY": "5",
		"EMBEDDING_PROVIDER":      "ollama",
		"EMBEDDING_MODEL":         "nomic-embed-text",
		"STORE_BACKEND":           "qdrant",
		"QDRANT_HOST":             "qdrant.internal",
		"QDRANT_PORT":             "6334",
		"LOG_LEVEL":               "debug",
		"LOG_FORMAT":              "text",
	}
	for k, want := range checks {
		got := os.Getenv(k)
		if got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
store:
  backend: qdrant
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Set env var BEFORE loading — it should NOT be overwritten.
	t.Setenv("STORE_BACKEND", "local")

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("STORE_BACKEND"); got != "local" {
		t.Errorf("STORE_BACKEND: expected env override %q, got %q", "local", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_ZeroValuesNotApplied(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
index:
  chunk_size: 0
store:
  qdrant:
    tls: false
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"INDEX_CHUNK_SIZE", "QDRANT_TLS"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	if _, err := Load(cfgPath, slog.Default()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v, ok := os.LookupEnv("INDEX_CHUNK_SIZE"); ok && v != "" {
		t.Errorf("zero chunk_size must not be exported, got %q", v)
	}
	if v, ok := os.LookupEnv("QDRANT_TLS"); ok && v != "" {
		t.Errorf("false tls must not be exported, got %q", v)
	}
}
