// Package chunk splits documents into overlapping, token-bounded windows
// suitable for embedding. Window boundaries are computed in token space so
// every chunk fits the embedding API's per-input token limit; each window is
// decoded back to text for storage.
package chunk

import (
	"fmt"

	"github.com/BenDundee/ravana/internal/tokenizer"
)

// Piece is one chunk produced from a source document: the decoded window
// text plus the document's metadata. Every piece of a given document carries
// the same metadata values — metadata is per-document, not per-chunk.
type Piece struct {
	// Text is the decoded text of one token window. Never empty.
	Text string

	// Metadata is the source document's metadata, copied verbatim.
	Metadata map[string]string
}

// Chunker produces overlapping token windows over document text.
// It is stateless after construction and safe for concurrent use.
type Chunker struct {
	// codec encodes document text to token ids and decodes windows back.
	codec tokenizer.Codec

	// size is the window length in tokens.
	size int

	// overlap is the number of tokens shared by consecutive windows.
	overlap int
}

// New constructs a Chunker. size must be positive and overlap must satisfy
// 0 <= overlap < size; violations are configuration errors rejected here.
func New(codec tokenizer.Codec, size, overlap int) (*Chunker, error) {
	if codec == nil {
		return nil, fmt.Errorf("chunk: codec must not be nil")
	}
	if size <= 0 {
		return nil, fmt.Errorf("chunk: chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk: overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{codec: codec, size: size, overlap: overlap}, nil
}

// Split chunks document text into overlapping token windows and decodes each
// window back to text. Windows advance by size-overlap tokens; the trailing
// window is kept even when shorter than size (it always holds at least one
// token). A document of at most size tokens yields exactly one piece equal
// to the whole document; empty text yields no pieces. metadata is attached
// to every piece unmodified.
func (c *Chunker) Split(document string, metadata map[string]string) []Piece {
	ids := c.codec.Encode(document)
	if len(ids) == 0 {
		return nil
	}

	stride := c.size - c.overlap
	pieces := make([]Piece, 0, (len(ids)+stride-1)/stride)
	for start := 0; start < len(ids); start += stride {
		end := start + c.size
		if end > len(ids) {
			end = len(ids)
		}
		pieces = append(pieces, Piece{
			Text:     c.codec.Decode(ids[start:end]),
			Metadata: metadata,
		})
		if end == len(ids) {
			break
		}
	}
	return pieces
}

// Size returns the configured window length in tokens.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap in tokens.
func (c *Chunker) Overlap() int { return c.overlap }
