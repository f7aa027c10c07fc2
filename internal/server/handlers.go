package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/BenDundee/ravana/internal/index"
	"github.com/BenDundee/ravana/internal/logging"
)

// handleQuery handles POST /api/query: embed the query text and return the
// nearest chunks by ascending distance.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Query == "" {
		http.Error(w, "query is required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	res, err := s.retriever.Retrieve(r.Context(), req.Query, req.K, req.Filter)
	s.metrics.queryDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.queryRequestsTotal.WithLabelValues("error").Inc()
		writeIndexError(w, log, err)
		return
	}
	s.metrics.queryRequestsTotal.WithLabelValues("ok").Inc()

	writeJSON(w, http.StatusOK, res)
}

// handleIngest handles POST /api/documents: chunk, embed, and index the
// submitted records. On a partial mid-batch failure the response is an
// error; earlier batches may already be persisted (the operation is not
// atomic).
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Records) == 0 {
		http.Error(w, "records are required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	ids, err := s.ingestor.IngestDocuments(r.Context(), req.Records)
	s.metrics.ingestDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.ingestRequestsTotal.WithLabelValues("error").Inc()
		writeIndexError(w, log, err)
		return
	}
	s.metrics.ingestRequestsTotal.WithLabelValues("ok").Inc()
	s.metrics.ingestChunksTotal.Add(float64(len(ids)))

	writeJSON(w, http.StatusOK, ingestResponse{IDs: ids})
}

// handleDelete handles DELETE /api/documents: remove chunks by id.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := s.coll.DeleteByIDs(r.Context(), req.IDs); err != nil {
		writeIndexError(w, log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCount handles GET /api/count.
func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	n, err := s.coll.Count(r.Context())
	if err != nil {
		writeIndexError(w, log, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: n})
}

// handleHealth handles GET /api/health for liveness checks.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeIndexError maps index error taxonomy onto HTTP status codes:
// precondition violations are the client's fault (400), operations on a
// dropped collection conflict with server state (409), anything else is a
// backend failure (502).
func writeIndexError(w http.ResponseWriter, log *slog.Logger, err error) {
	var recErr *index.RecordError
	switch {
	case errors.As(err, &recErr):
		log.Warn("rejected record", slog.Any("metadata", recErr.Metadata))
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, index.ErrPrecondition):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, index.ErrDropped):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		log.Error("index operation failed", slog.Any("error", err))
		http.Error(w, "index operation failed", http.StatusBadGateway)
	}
}

// writeJSON encodes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("response encode error", slog.Any("error", err))
	}
}
