// Package batch partitions parallel document/metadata/id lists into
// fixed-size groups so that upstream services' maximum-items-per-call limits
// are respected. The OpenAI embeddings API, for example, accepts at most
// 2048 inputs per call and rejects any empty input element.
package batch

import "fmt"

// Group is one size-bounded slice of the three parallel input lists.
// Index correspondence is preserved: Documents[i], Metadatas[i], and IDs[i]
// refer to the same chunk.
type Group struct {
	// Documents holds the chunk texts for this group.
	Documents []string

	// Metadatas holds the per-chunk metadata, parallel to Documents.
	Metadatas []map[string]string

	// IDs holds the chunk ids, parallel to Documents.
	IDs []string
}

// Partition splits the parallel lists into ceil(N/size) groups of at most
// size elements each, preserving original order. All groups except possibly
// the last have exactly size elements. The three lists must have equal
// length.
//
// Partition only bounds items-per-call. Token-per-call limits are the
// caller's responsibility: choose the chunk size and batch size so that
// size * chunk tokens stays under the service's total-token ceiling.
func Partition(documents []string, metadatas []map[string]string, ids []string, size int) ([]Group, error) {
	if size <= 0 {
		return nil, fmt.Errorf("batch: size must be positive, got %d", size)
	}
	if len(documents) != len(metadatas) || len(documents) != len(ids) {
		return nil, fmt.Errorf("batch: parallel lists must have equal length: %d documents, %d metadatas, %d ids",
			len(documents), len(metadatas), len(ids))
	}

	n := len(documents)
	groups := make([]Group, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		end := start + size
		if end > n {
			end = n
		}
		groups = append(groups, Group{
			Documents: documents[start:end],
			Metadatas: metadatas[start:end],
			IDs:       ids[start:end],
		})
	}
	return groups, nil
}
