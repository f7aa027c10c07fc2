// Package index implements the document indexing and retrieval core: typed
// chunk records, the collection lifecycle over a persistent vector store,
// and the similarity query path. Storage backends (Qdrant, local SQLite) and
// the embedding function are consumed through the narrow Store and Embedder
// interfaces so callers never depend on a specific backend.
package index

import (
	"context"
	"fmt"
	"math"
)

// Chunk is one stored unit of searchable text. Chunks are immutable once
// stored; identity is ID. Distance is populated only on query results.
type Chunk struct {
	// ID is the unique, opaque identifier of this chunk.
	ID string `json:"id"`

	// Text is the chunk's text. Never empty for a stored chunk.
	Text string `json:"text"`

	// Metadata holds the source document's key-value metadata. All chunks
	// derived from one document share identical metadata.
	Metadata map[string]string `json:"metadata"`

	// Distance is the query-time distance between this chunk and the query
	// vector under the collection's metric. Lower is closer; always >= 0
	// for cosine and l2. Zero value outside query results.
	Distance float32 `json:"distance"`
}

// QueryResult is the ordered outcome of a similarity query: chunks by
// ascending distance, at most min(requested k, collection count) entries.
type QueryResult struct {
	// Results holds the matched chunks, closest first.
	Results []Chunk `json:"results"`
}

// DocumentRecord is the ingestion input: one source document plus the
// metadata that will be copied verbatim onto every chunk derived from it.
// The JSON shape matches the processed data files on disk.
type DocumentRecord struct {
	// Document is the raw document text.
	Document string `json:"document"`

	// Metadata is the document's key-value metadata.
	Metadata map[string]string `json:"metadata"`
}

// SearchResultItem is the alternate ingestion input produced by the web
// fetch tool. Items whose Content is nil (fetch failed or page empty) are
// excluded before chunking — no chunk is ever created from absent content.
type SearchResultItem struct {
	// URL is the page address that was fetched.
	URL string `json:"url"`

	// Title is the page title, empty when none could be extracted.
	Title string `json:"title,omitempty"`

	// Content is the extracted page text, nil when the fetch failed.
	Content *string `json:"content"`

	// Query is the search term that produced this item.
	Query string `json:"query"`
}

// Record converts the item into a DocumentRecord carrying {title, url}
// metadata. Callers must filter nil-Content items first.
func (s *SearchResultItem) Record() DocumentRecord {
	return DocumentRecord{
		Document: *s.Content,
		Metadata: map[string]string{"title": s.Title, "url": s.URL},
	}
}

// Embedder converts a batch of texts into dense vector embeddings.
// The returned slice is parallel to the input; callers must never pass
// empty strings. Implementations must be safe for concurrent use.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Store is the persistent vector store backend bound to one named
// collection with a distance metric fixed at creation. Implementations must
// keep documents, metadatas, ids, and vectors index-aligned on Add, return
// query results by ascending distance, and treat Delete of unknown ids as
// a no-op.
type Store interface {
	// Add inserts one batch of chunks with their pre-computed embeddings.
	// All four slices must be parallel.
	Add(ctx context.Context, documents []string, metadatas []map[string]string, ids []string, vectors [][]float32) error

	// Query returns the k nearest chunks to vector, optionally restricted
	// to chunks whose metadata matches every filter key exactly.
	Query(ctx context.Context, vector []float32, k int, filter map[string]string) ([]Chunk, error)

	// Delete removes chunks by id; unknown ids are ignored.
	Delete(ctx context.Context, ids []string) error

	// Drop deletes the named collection, or the bound collection when name
	// is empty. Dropping an absent collection is a no-op.
	Drop(ctx context.Context, name string) error

	// Count returns the number of chunks currently stored.
	Count(ctx context.Context) (int, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}

// Metric identifies the distance function fixed per collection at creation.
// Names follow the convention of the embedding store the service originally
// shipped with: "l2" is squared euclidean, "ip" is inner-product distance
// (1 - dot), "cosine" is cosine distance (1 - cosine similarity).
type Metric string

const (
	// MetricCosine is cosine distance: 1 - cos(a, b).
	MetricCosine Metric = "cosine"
	// MetricL2 is squared euclidean distance.
	MetricL2 Metric = "l2"
	// MetricDot is inner-product distance: 1 - <a, b>.
	MetricDot Metric = "ip"
)

// ParseMetric validates a configured metric name. The empty string defaults
// to cosine; anything else unknown is a configuration error.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case "":
		return MetricCosine, nil
	case MetricCosine, MetricL2, MetricDot:
		return Metric(s), nil
	default:
		return "", fmt.Errorf("index: unknown distance metric %q (want cosine, l2, or ip)", s)
	}
}

// distance computes the metric's distance between two equal-length vectors.
func (m Metric) distance(a, b []float32) float32 {
	var dot, na, nb, l2 float32
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
		d := a[i] - b[i]
		l2 += d * d
	}
	switch m {
	case MetricL2:
		return l2
	case MetricDot:
		return 1 - dot
	default:
		if na == 0 || nb == 0 {
			return 1
		}
		return 1 - dot/(sqrt32(na)*sqrt32(nb))
	}
}

func sqrt32(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}
