// Package tokenizer wraps the tiktoken subword tokenizer used to measure and
// split documents before embedding. The encoding name must match the
// tokenizer of the configured embedding model (e.g. "cl100k_base" for the
// text-embedding-3 family) so that chunk boundaries line up with the token
// limits the embedding API enforces.
package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// Codec is the narrow encode/decode contract the chunker depends on.
// Implementations must be deterministic for a fixed encoding name.
type Codec interface {
	// Encode converts text into its token-id sequence.
	Encode(text string) []int

	// Decode converts a token-id sequence back to text. Decoding is a
	// best-effort inverse: splitting a token sequence mid-grapheme can lose
	// bytes at the cut points, so a byte-exact round-trip is not guaranteed
	// for arbitrary Unicode input. Token counts survive within the
	// tokenizer's documented tolerance.
	Decode(ids []int) string
}

// Tokenizer adapts a tiktoken encoding to the Codec interface.
// It is stateless after construction and safe for concurrent use.
type Tokenizer struct {
	// name is the tiktoken encoding name this tokenizer was built with.
	name string

	// enc is the underlying tiktoken encoder.
	enc *tiktoken.Tiktoken
}

// New constructs a Tokenizer for the given tiktoken encoding name.
// An unknown encoding is a configuration error and fails here, never at
// Encode/Decode time.
func New(encoding string) (*Tokenizer, error) {
	if encoding == "" {
		return nil, fmt.Errorf("tokenizer: encoding name must not be empty")
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: unknown encoding %q: %w", encoding, err)
	}
	return &Tokenizer{name: encoding, enc: enc}, nil
}

// Name returns the encoding name this tokenizer was constructed with.
func (t *Tokenizer) Name() string { return t.name }

// Encode converts text into its token-id sequence.
func (t *Tokenizer) Encode(text string) []int {
	return t.enc.Encode(text, nil, nil)
}

// Decode converts a token-id sequence back to text.
func (t *Tokenizer) Decode(ids []int) string {
	return t.enc.Decode(ids)
}

// Count returns the number of tokens in text.
func (t *Tokenizer) Count(text string) int {
	return len(t.Encode(text))
}
