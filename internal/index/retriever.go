package index

import (
	"context"
	"fmt"
)

// Retriever is the stable public read API for similarity retrieval.
// Callers depend on it rather than on Collection or Store internals.
type Retriever struct {
	// coll is the attached collection queries run against.
	coll *Collection

	// defaultK is the result count used when the caller passes k <= 0.
	defaultK int
}

// NewRetriever constructs a Retriever over an attached collection.
// defaultK sets the fallback result count; values <= 0 fall back to 5.
func NewRetriever(coll *Collection, defaultK int) (*Retriever, error) {
	if coll == nil {
		return nil, fmt.Errorf("index: collection must not be nil")
	}
	if defaultK <= 0 {
		defaultK = 5
	}
	return &Retriever{coll: coll, defaultK: defaultK}, nil
}

// Retrieve returns the k nearest chunks for query, ordered by ascending
// distance. k <= 0 selects the configured default. filter restricts results
// to chunks whose metadata matches every key exactly; pass nil for no
// restriction.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int, filter map[string]string) (*QueryResult, error) {
	if k <= 0 {
		k = r.defaultK
	}
	return r.coll.Query(ctx, query, k, filter)
}
