package index

import (
	"errors"
	"fmt"
)

// ErrPrecondition marks failures detected before any I/O is issued: empty
// document text submitted for embedding, an empty search-result set after
// content filtering, or a non-positive result count. Match with errors.Is.
var ErrPrecondition = errors.New("precondition failed")

// ErrDropped marks operations issued against a collection after Drop.
// The collection must be re-attached before further use.
var ErrDropped = errors.New("collection dropped")

// RecordError reports an ingestion failure for one source record. The
// record's metadata is attached so the offending document can be identified
// without re-running the pipeline.
type RecordError struct {
	// Metadata is the metadata of the record that failed.
	Metadata map[string]string

	// Err is the underlying failure.
	Err error
}

// Error formats the failure with the record's metadata for diagnosis.
func (e *RecordError) Error() string {
	return fmt.Sprintf("record with metadata %v: %v", e.Metadata, e.Err)
}

// Unwrap returns the underlying error for errors.Is / errors.As matching.
func (e *RecordError) Unwrap() error { return e.Err }
