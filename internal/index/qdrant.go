package index

import (
	"context"
	"fmt"
	"sort"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection parameters for a Qdrant-backed Store.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the stored embeddings.
	VectorSize uint64

	// Metric is the distance metric fixed at collection creation.
	Metric Metric

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// Recreate deletes an existing collection before creating it afresh.
	// Must complete before any other operation on the collection.
	Recreate bool
}

// QdrantStore implements Store backed by a Qdrant instance. Chunk text and
// metadata live in the point payload; the payload key "document" is
// reserved for the chunk text.
type QdrantStore struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this store.
	cfg *QdrantConfig
}

// NewQdrantStore connects to Qdrant, optionally recreating the target
// collection, and ensures the collection exists with the configured vector
// size and distance metric.
func NewQdrantStore(ctx context.Context, cfg *QdrantConfig) (*QdrantStore, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	metric, err := ParseMetric(string(cfg.Metric))
	if err != nil {
		return nil, err
	}
	cfg.Metric = metric

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	store := &QdrantStore{client: client, cfg: cfg}
	if cfg.Recreate {
		if err := store.Drop(ctx, cfg.Collection); err != nil {
			return nil, err
		}
	}
	if err := store.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// ensureCollection creates the Qdrant collection if it does not exist.
func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.cfg.Collection)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.cfg.VectorSize,
			Distance: qdrantDistance(s.cfg.Metric),
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", s.cfg.Collection, err)
	}
	return nil
}

// qdrantDistance maps a Metric onto Qdrant's distance enum.
func qdrantDistance(m Metric) qdrant.Distance {
	switch m {
	case MetricL2:
		return qdrant.Distance_Euclid
	case MetricDot:
		return qdrant.Distance_Dot
	default:
		return qdrant.Distance_Cosine
	}
}

// scoreToDistance converts a Qdrant similarity score into the collection
// metric's distance so that both backends rank identically by ascending
// distance. Qdrant reports cosine and dot as similarities (higher is
// closer) and euclid as a distance already.
func scoreToDistance(m Metric, score float32) float32 {
	switch m {
	case MetricL2:
		return score
	default:
		return 1 - score
	}
}

// Add inserts one batch of chunks with their embeddings.
func (s *QdrantStore) Add(ctx context.Context, documents []string, metadatas []map[string]string, ids []string, vectors [][]float32) error {
	if len(documents) != len(metadatas) || len(documents) != len(ids) || len(documents) != len(vectors) {
		return fmt.Errorf("qdrant: add: parallel slices have unequal lengths")
	}

	points := make([]*qdrant.PointStruct, 0, len(documents))
	for i := range documents {
		payload := map[string]any{"document": documents[i]}
		for k, v := range metadatas[i] {
			payload[k] = v
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(ids[i]),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(payload),
		})
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.cfg.Collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert failed: %w", err)
	}
	return nil
}

// Query performs a similarity search and returns the k nearest chunks by
// ascending distance under the collection's metric.
func (s *QdrantStore) Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]Chunk, error) {
	limit := uint64(k)

	var qf *qdrant.Filter
	if len(filter) > 0 {
		conditions := make([]*qdrant.Condition, 0, len(filter))
		for key, val := range filter {
			conditions = append(conditions, qdrant.NewMatch(key, val))
		}
		qf = &qdrant.Filter{Must: conditions}
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		Filter:         qf,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	chunks := make([]Chunk, 0, len(results))
	for _, r := range results {
		c := Chunk{
			ID:       r.Id.GetUuid(),
			Distance: scoreToDistance(s.cfg.Metric, r.Score),
			Metadata: make(map[string]string),
		}
		for k, v := range r.Payload {
			if k == "document" {
				c.Text = v.GetStringValue()
				continue
			}
			c.Metadata[k] = v.GetStringValue()
		}
		chunks = append(chunks, c)
	}
	// Qdrant orders by score; re-order by the converted distance so callers
	// always see ascending distance regardless of metric.
	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Distance < chunks[j].Distance })
	return chunks, nil
}

// Delete removes chunks by id. Ids not present are ignored by Qdrant.
func (s *QdrantStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	pointIDs := make([]*qdrant.PointId, 0, len(ids))
	for _, id := range ids {
		pointIDs = append(pointIDs, qdrant.NewIDUUID(id))
	}

	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.cfg.Collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete failed: %w", err)
	}
	return nil
}

// Drop deletes the named collection (the bound collection when name is
// empty). Dropping an absent collection is a no-op.
func (s *QdrantStore) Drop(ctx context.Context, name string) error {
	if name == "" {
		name = s.cfg.Collection
	}
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if !exists {
		return nil
	}
	if err := s.client.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("qdrant: failed to delete collection %q: %w", name, err)
	}
	return nil
}

// Count returns the exact number of points in the collection.
func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	exact := true
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.cfg.Collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count failed: %w", err)
	}
	return int(n), nil
}

// Ping calls the Qdrant HealthCheck RPC. Used by readiness probes.
func (s *QdrantStore) Ping(ctx context.Context) error {
	if _, err := s.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying gRPC connection.
func (s *QdrantStore) Close() error {
	return s.client.Close()
}
