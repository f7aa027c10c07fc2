package index

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/BenDundee/ravana/internal/batch"
)

// defaultBatchSize bounds the number of chunks sent to the embedding
// function and the store per call. 200 stays comfortably under the OpenAI
// embeddings limits (2048 inputs per call, 8191 tokens per input) for any
// sane chunk size; callers with very large chunks should configure a lower
// value.
const defaultBatchSize = 200

// Config holds the collection-level settings fixed at attach time.
type Config struct {
	// Name is the collection name. Required.
	Name string

	// BatchSize is the maximum number of chunks per embed/insert call.
	// Defaults to 200 if zero.
	BatchSize int
}

// Collection manages the lifecycle of one named persistent vector
// collection: batched embed-and-insert, clamped similarity queries,
// deletion by id, and drop. A Collection is attached on construction and
// unusable after Drop until re-attached.
//
// Collection adds no internal locking. Concurrent reads are as safe as the
// underlying store makes them; concurrent writers to the same collection
// must coordinate externally.
type Collection struct {
	// name is the bound collection name.
	name string

	// embedder is the embedding function fixed at attach time.
	embedder Embedder

	// store is the vector store backend holding this collection.
	store Store

	// batchSize bounds chunks per embed/insert call.
	batchSize int

	// dropped is set by Drop; every later operation fails with ErrDropped.
	dropped bool
}

// Attach binds a Collection to its embedding function and store backend.
// Storage recreation (directory wipe, collection deletion) is the store
// constructor's job and must have completed before Attach — this is the
// one-time startup barrier before any add or query is issued.
func Attach(embedder Embedder, store Store, cfg *Config) (*Collection, error) {
	if embedder == nil {
		return nil, fmt.Errorf("index: embedder must not be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("index: store must not be nil")
	}
	if cfg == nil || cfg.Name == "" {
		return nil, fmt.Errorf("index: collection name is required")
	}
	size := cfg.BatchSize
	if size <= 0 {
		size = defaultBatchSize
	}
	return &Collection{
		name:      cfg.Name,
		embedder:  embedder,
		store:     store,
		batchSize: size,
	}, nil
}

// Name returns the bound collection name.
func (c *Collection) Name() string { return c.name }

// Add embeds and inserts documents in batch order. When ids is nil, a
// random UUID is generated per document; when metadatas is nil, empty maps
// are substituted. Empty document text is rejected before any I/O.
//
// Batches are independent and issued sequentially: a failure in a later
// batch does not roll back earlier batches, so a mid-add error leaves the
// collection partially updated. The returned id list always covers every
// document that was attempted — on error, callers must treat it as "what
// was submitted", not "what succeeded".
func (c *Collection) Add(ctx context.Context, documents []string, metadatas []map[string]string, ids []string) ([]string, error) {
	if c.dropped {
		return nil, fmt.Errorf("index: add on %q: %w", c.name, ErrDropped)
	}

	for i, doc := range documents {
		if doc == "" {
			return nil, fmt.Errorf("index: document %d is empty: %w", i, ErrPrecondition)
		}
	}
	if ids == nil {
		ids = make([]string, len(documents))
		for i := range ids {
			ids[i] = uuid.NewString()
		}
	}
	if metadatas == nil {
		metadatas = make([]map[string]string, len(documents))
		for i := range metadatas {
			metadatas[i] = map[string]string{}
		}
	}

	groups, err := batch.Partition(documents, metadatas, ids, c.batchSize)
	if err != nil {
		return nil, fmt.Errorf("index: add: %w", err)
	}

	for i, g := range groups {
		vectors, err := c.embedder.Embed(ctx, g.Documents)
		if err != nil {
			return ids, fmt.Errorf("index: embedding batch %d/%d: %w", i+1, len(groups), err)
		}
		if len(vectors) != len(g.Documents) {
			return ids, fmt.Errorf("index: embedding batch %d/%d: got %d vectors for %d documents",
				i+1, len(groups), len(vectors), len(g.Documents))
		}
		if err := c.store.Add(ctx, g.Documents, g.Metadatas, g.IDs, vectors); err != nil {
			return ids, fmt.Errorf("index: inserting batch %d/%d: %w", i+1, len(groups), err)
		}
	}
	return ids, nil
}

// Query embeds text and returns the k nearest chunks by ascending distance,
// optionally restricted by an exact-match metadata filter. k is clamped to
// [1, count]; an empty collection yields an empty result without touching
// the backend. k < 1 is a precondition error.
func (c *Collection) Query(ctx context.Context, text string, k int, filter map[string]string) (*QueryResult, error) {
	if c.dropped {
		return nil, fmt.Errorf("index: query on %q: %w", c.name, ErrDropped)
	}
	if k < 1 {
		return nil, fmt.Errorf("index: query requested %d results: %w", k, ErrPrecondition)
	}
	if text == "" {
		return nil, fmt.Errorf("index: query text is empty: %w", ErrPrecondition)
	}

	count, err := c.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("index: query count: %w", err)
	}
	if count == 0 {
		return &QueryResult{Results: []Chunk{}}, nil
	}
	if k > count {
		k = count
	}

	vectors, err := c.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("index: embedding query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("index: embedder returned no vector for query")
	}

	chunks, err := c.store.Query(ctx, vectors[0], k, filter)
	if err != nil {
		return nil, fmt.Errorf("index: query: %w", err)
	}
	return &QueryResult{Results: chunks}, nil
}

// DeleteByIDs removes the given chunks. Ids not present in the collection
// are silently ignored.
func (c *Collection) DeleteByIDs(ctx context.Context, ids []string) error {
	if c.dropped {
		return fmt.Errorf("index: delete on %q: %w", c.name, ErrDropped)
	}
	if len(ids) == 0 {
		return nil
	}
	if err := c.store.Delete(ctx, ids); err != nil {
		return fmt.Errorf("index: delete: %w", err)
	}
	return nil
}

// Drop deletes the bound collection. Dropping twice is a no-op; any other
// operation after Drop fails with ErrDropped until a new Collection is
// attached.
func (c *Collection) Drop(ctx context.Context) error {
	if c.dropped {
		return nil
	}
	if err := c.store.Drop(ctx, c.name); err != nil {
		return fmt.Errorf("index: drop %q: %w", c.name, err)
	}
	c.dropped = true
	return nil
}

// Count returns the current chunk count.
func (c *Collection) Count(ctx context.Context) (int, error) {
	if c.dropped {
		return 0, fmt.Errorf("index: count on %q: %w", c.name, ErrDropped)
	}
	return c.store.Count(ctx)
}
