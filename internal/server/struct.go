package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/BenDundee/ravana/internal/index"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, a default logger is constructed.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// MetricsRegistry receives all metric registrations. Defaults to the
	// global prometheus.DefaultRegisterer.
	MetricsRegistry prometheus.Registerer
	// MetricsGatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	MetricsGatherer prometheus.Gatherer
}

// retriever is the interface handleQuery calls to run a similarity search.
// *index.Retriever satisfies it; tests inject a fake.
type retriever interface {
	Retrieve(ctx context.Context, query string, k int, filter map[string]string) (*index.QueryResult, error)
}

// ingestor is the interface handleIngest calls to add documents.
// *ingest.Pipeline satisfies it; tests inject a fake.
type ingestor interface {
	IngestDocuments(ctx context.Context, records []index.DocumentRecord) ([]string, error)
}

// collection is the subset of *index.Collection the delete and count
// handlers need.
type collection interface {
	DeleteByIDs(ctx context.Context, ids []string) error
	Count(ctx context.Context) (int, error)
}

// Server is the HTTP server exposing the index over a REST API.
type Server struct {
	// retriever runs similarity queries for POST /api/query.
	retriever retriever
	// ingestor adds documents for POST /api/documents.
	ingestor ingestor
	// coll backs DELETE /api/documents and GET /api/count.
	coll collection
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// Query is the natural-language search text.
	Query string `json:"query"`
	// K is the number of results; 0 selects the server default.
	K int `json:"k,omitempty"`
	// Filter restricts results to chunks matching every key exactly.
	Filter map[string]string `json:"filter,omitempty"`
}

// ingestRequest is the JSON body for POST /api/documents.
type ingestRequest struct {
	// Records is the list of documents to chunk and index.
	Records []index.DocumentRecord `json:"records"`
}

// ingestResponse is the JSON response for POST /api/documents.
type ingestResponse struct {
	// IDs lists the chunk ids that were submitted for indexing.
	IDs []string `json:"ids"`
}

// deleteRequest is the JSON body for DELETE /api/documents.
type deleteRequest struct {
	// IDs lists the chunk ids to remove. Unknown ids are ignored.
	IDs []string `json:"ids"`
}

// countResponse is the JSON response for GET /api/count.
type countResponse struct {
	// Count is the number of chunks currently stored.
	Count int `json:"count"`
}
