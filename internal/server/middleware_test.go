package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BenDundee/ravana/internal/logging"
)

// TestRequestLogger_EchoesRequestID verifies that every response carries an
// X-Request-Id header and that the completion log line includes the same id,
// status, and byte count.
func TestRequestLogger_EchoesRequestID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logging.NewWithWriter(&buf, "info", "json")

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})

	w := httptest.NewRecorder()
	requestLogger(log, inner).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/count", nil))

	reqID := w.Header().Get(requestIDHeader)
	if reqID == "" {
		t.Fatal("expected X-Request-Id response header")
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["request_id"] != reqID {
		t.Errorf("log request_id = %v, want %q", entry["request_id"], reqID)
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("log status = %v, want %d", entry["status"], http.StatusTeapot)
	}
	if entry["bytes"] != float64(len("short and stout")) {
		t.Errorf("log bytes = %v, want %d", entry["bytes"], len("short and stout"))
	}
	if entry["path"] != "/api/count" {
		t.Errorf("log path = %v, want /api/count", entry["path"])
	}
}

// TestRequestLogger_ContextCarriesLogger verifies that handlers downstream of
// the middleware can pull the request-scoped logger from the context.
func TestRequestLogger_ContextCarriesLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logging.NewWithWriter(&buf, "info", "json")

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logging.FromContext(r.Context()).Info("handler ran")
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	requestLogger(log, inner).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if !bytes.Contains(buf.Bytes(), []byte("handler ran")) {
		t.Error("expected handler log line to reach the middleware's logger")
	}
	if !bytes.Contains(buf.Bytes(), []byte("request_id")) {
		t.Error("expected handler log line to carry request_id")
	}
}
