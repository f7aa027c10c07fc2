// Package ingest implements the document ingestion pipeline: source records
// are chunked into token windows, accumulated, and added to the vector
// collection in one batched call. The pipeline is invoked by the `ravana
// init` and `ravana fetch` CLI commands and by the HTTP ingest endpoint.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/BenDundee/ravana/internal/chunk"
	"github.com/BenDundee/ravana/internal/index"
	"github.com/BenDundee/ravana/internal/logging"
)

// Pipeline composes the chunker and an attached collection into the
// chunk-then-add ingestion path.
//
// Failure policies differ by stage and that difference is deliberate:
// chunking fails fast — one bad record aborts the whole ingestion before
// anything is written; the add stage is batched and non-atomic — a failing
// batch leaves earlier batches persisted (see Collection.Add).
type Pipeline struct {
	// chunker splits document text into token windows.
	chunker *chunk.Chunker

	// coll is the attached collection chunks are added to.
	coll *index.Collection
}

// NewPipeline constructs a Pipeline from the provided dependencies.
func NewPipeline(chunker *chunk.Chunker, coll *index.Collection) (*Pipeline, error) {
	if chunker == nil {
		return nil, fmt.Errorf("ingest: chunker must not be nil")
	}
	if coll == nil {
		return nil, fmt.Errorf("ingest: collection must not be nil")
	}
	return &Pipeline{chunker: chunker, coll: coll}, nil
}

// IngestDocuments chunks every record, accumulates the pieces across all
// records, and adds them to the collection in a single batched call.
// A record with empty document text aborts the whole ingestion with a
// RecordError naming that record's metadata; nothing is added in that case.
func (p *Pipeline) IngestDocuments(ctx context.Context, records []index.DocumentRecord) ([]string, error) {
	var documents []string
	var metadatas []map[string]string

	for _, rec := range records {
		pieces := p.chunker.Split(rec.Document, rec.Metadata)
		if len(pieces) == 0 {
			return nil, &index.RecordError{
				Metadata: rec.Metadata,
				Err:      fmt.Errorf("document produced no chunks: %w", index.ErrPrecondition),
			}
		}
		for _, piece := range pieces {
			documents = append(documents, piece.Text)
			metadatas = append(metadatas, piece.Metadata)
		}
	}
	if len(documents) == 0 {
		return nil, fmt.Errorf("ingest: no records to ingest: %w", index.ErrPrecondition)
	}

	log := logging.FromContext(ctx)
	log.Info("ingesting chunks",
		slog.Int("records", len(records)),
		slog.Int("chunks", len(documents)),
	)

	ids, err := p.coll.Add(ctx, documents, metadatas, nil)
	if err != nil {
		return ids, fmt.Errorf("ingest: %w", err)
	}
	return ids, nil
}

// IngestSearchResults filters out items with absent content, converts the
// survivors to DocumentRecords carrying {title, url} metadata, and routes
// them through the same chunk-then-add path. An item with nil content never
// reaches the chunker; an input that leaves nothing after filtering is a
// precondition error.
func (p *Pipeline) IngestSearchResults(ctx context.Context, items []index.SearchResultItem) ([]string, error) {
	records := make([]index.DocumentRecord, 0, len(items))
	for _, item := range items {
		if item.Content == nil {
			continue
		}
		records = append(records, item.Record())
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("ingest: no search results with content: %w", index.ErrPrecondition)
	}
	return p.IngestDocuments(ctx, records)
}

// Initialize reads each file as a JSON DocumentRecord and ingests the
// resulting records. A file that cannot be read or parsed, or whose record
// is missing the document or metadata field, fails the whole initialization
// with the offending file's metadata (or path) attached.
func (p *Pipeline) Initialize(ctx context.Context, paths []string) ([]string, error) {
	records := make([]index.DocumentRecord, 0, len(paths))
	for _, path := range paths {
		rec, err := readRecord(path)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return p.IngestDocuments(ctx, records)
}

// readRecord loads and validates one source document file.
func readRecord(path string) (index.DocumentRecord, error) {
	var rec index.DocumentRecord

	data, err := os.ReadFile(path)
	if err != nil {
		return rec, &index.RecordError{
			Metadata: map[string]string{"file": path},
			Err:      fmt.Errorf("reading: %w", err),
		}
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, &index.RecordError{
			Metadata: map[string]string{"file": path},
			Err:      fmt.Errorf("parsing: %w", err),
		}
	}
	if rec.Document == "" || rec.Metadata == nil {
		meta := rec.Metadata
		if meta == nil {
			meta = map[string]string{"file": path}
		}
		return rec, &index.RecordError{
			Metadata: meta,
			Err:      fmt.Errorf("missing document or metadata field in %s", path),
		}
	}
	return rec, nil
}
