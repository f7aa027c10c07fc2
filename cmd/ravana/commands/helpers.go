package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BenDundee/ravana/internal/chunk"
	"github.com/BenDundee/ravana/internal/embedder"
	"github.com/BenDundee/ravana/internal/fetch"
	"github.com/BenDundee/ravana/internal/index"
	"github.com/BenDundee/ravana/internal/ingest"
	"github.com/BenDundee/ravana/internal/tokenizer"
)

// Chunking defaults, in tokens.
const (
	defaultChunkSize    = 256
	defaultChunkOverlap = 32
	defaultTokenizer    = "cl100k_base"
	defaultCollection   = "ravana-docs"
)

// components bundles everything a command needs to operate on the index.
// Close must be called when the command is done.
type components struct {
	// Store is the opened vector store backend.
	Store index.Store
	// Collection is the attached collection.
	Collection *index.Collection
	// Retriever is the read API over the collection.
	Retriever *index.Retriever
	// Pipeline is the chunk-then-add ingestion path.
	Pipeline *ingest.Pipeline
	// StoreName labels the backend for readiness probes ("local" or "qdrant").
	StoreName string
}

// Close releases the store connection.
func (c *components) Close() {
	if c.Store != nil {
		_ = c.Store.Close()
	}
}

// buildComponents wires tokenizer, chunker, embedder, store, collection,
// retriever, and ingestion pipeline from the environment. recreate wipes
// existing collection storage before opening — the one-time startup barrier
// used by `ravana init --recreate`.
func buildComponents(ctx context.Context, log *slog.Logger, recreate bool) (*components, error) {
	embedder.Validate(log)

	emb, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	log.Info("embedder initialised", slog.String("provider", embedder.Backend()))

	codec, err := tokenizer.New(getEnvOrDefault("INDEX_TOKENIZER", defaultTokenizer))
	if err != nil {
		return nil, fmt.Errorf("failed to initialise tokenizer: %w", err)
	}

	chunker, err := chunk.New(codec,
		getEnvInt("INDEX_CHUNK_SIZE", defaultChunkSize),
		getEnvInt("INDEX_CHUNK_OVERLAP", defaultChunkOverlap),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid chunking configuration: %w", err)
	}

	collection := getEnvOrDefault("INDEX_COLLECTION", defaultCollection)
	metric := index.Metric(os.Getenv("INDEX_DISTANCE_METRIC"))

	store, storeName, err := buildStore(ctx, log, collection, metric, recreate)
	if err != nil {
		return nil, err
	}

	coll, err := index.Attach(emb, store, &index.Config{
		Name:      collection,
		BatchSize: getEnvInt("INDEX_BATCH_SIZE", 0),
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to attach collection: %w", err)
	}

	retr, err := index.NewRetriever(coll, getEnvInt("INDEX_RESULTS_PER_QUERY", 0))
	if err != nil {
		store.Close()
		return nil, err
	}

	pipe, err := ingest.NewPipeline(chunker, coll)
	if err != nil {
		store.Close()
		return nil, err
	}

	return &components{
		Store:      store,
		Collection: coll,
		Retriever:  retr,
		Pipeline:   pipe,
		StoreName:  storeName,
	}, nil
}

// buildStore opens the configured vector store backend. STORE_BACKEND
// selects "local" (default, embedded SQLite) or "qdrant".
func buildStore(ctx context.Context, log *slog.Logger, collection string, metric index.Metric, recreate bool) (index.Store, string, error) {
	switch backend := getEnvOrDefault("STORE_BACKEND", "local"); backend {
	case "local":
		dir := os.Getenv("INDEX_DIRECTORY")
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return nil, "", fmt.Errorf("INDEX_DIRECTORY not set and home directory unavailable: %w", err)
			}
			dir = filepath.Join(home, ".ravana", "index")
		}
		store, err := index.OpenLocal(&index.LocalConfig{
			Dir:        dir,
			Collection: collection,
			Metric:     metric,
			Recreate:   recreate,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to open local store: %w", err)
		}
		log.Info("local store ready", slog.String("dir", dir), slog.String("collection", collection))
		return store, "local", nil

	case "qdrant":
		host := getEnvOrDefault("QDRANT_HOST", "localhost")
		port := getEnvInt("QDRANT_PORT", 6334)
		vectorSize := uint64(embedder.DefaultDimensions(embedder.Backend())) //nolint:gosec // dimensions are bounded
		store, err := index.NewQdrantStore(ctx, &index.QdrantConfig{
			Host:       host,
			Port:       port,
			Collection: collection,
			VectorSize: vectorSize,
			Metric:     metric,
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
			Recreate:   recreate,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
		}
		log.Info("qdrant store ready", slog.String("host", host), slog.Int("port", port), slog.String("collection", collection))
		return store, "qdrant", nil

	default:
		return nil, "", fmt.Errorf("unknown STORE_BACKEND %q — valid values: local, qdrant", backend)
	}
}

// buildFetcher constructs the page fetcher from the environment.
func buildFetcher() *fetch.Fetcher {
	return fetch.New(&fetch.Config{
		Concurrency: getEnvInt("FETCH_CONCURRENCY", 0),
		Timeout:     time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 0)) * time.Second,
	})
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
