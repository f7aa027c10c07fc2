package tokenizer

import "testing"

func Test_Tokenizer_UnknownEncodingFailsAtConstruction(t *testing.T) {
	t.Parallel()

	if _, err := New("no-such-encoding"); err == nil {
		t.Fatal("want error for unknown encoding, got nil")
	}
	if _, err := New(""); err == nil {
		t.Fatal("want error for empty encoding name, got nil")
	}
}

func Test_Tokenizer_EncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	tok, err := New("cl100k_base")
	if err != nil {
		t.Fatalf("new tokenizer: %v", err)
	}

	texts := []string{
		"Hello, world!",
		"a b c d e f g h",
		"The quick brown fox jumps over the lazy dog.",
	}
	for _, text := range texts {
		ids := tok.Encode(text)
		if len(ids) == 0 {
			t.Errorf("Encode(%q): want non-empty token sequence", text)
		}
		if got := tok.Decode(ids); got != text {
			t.Errorf("Decode(Encode(%q)) = %q", text, got)
		}
	}
}

func Test_Tokenizer_CountMatchesEncode(t *testing.T) {
	t.Parallel()

	tok, err := New("cl100k_base")
	if err != nil {
		t.Fatalf("new tokenizer: %v", err)
	}

	text := "counting tokens should agree with encoding"
	if got, want := tok.Count(text), len(tok.Encode(text)); got != want {
		t.Errorf("Count = %d, len(Encode) = %d", got, want)
	}
	if got := tok.Count(""); got != 0 {
		t.Errorf("Count of empty text: want 0, got %d", got)
	}
}

func Test_Tokenizer_EncodeIsDeterministic(t *testing.T) {
	t.Parallel()

	tok, err := New("cl100k_base")
	if err != nil {
		t.Fatalf("new tokenizer: %v", err)
	}

	text := "determinism matters for chunk boundaries"
	first := tok.Encode(text)
	second := tok.Encode(text)
	if len(first) != len(second) {
		t.Fatalf("token counts differ across calls: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("token %d differs: %d vs %d", i, first[i], second[i])
		}
	}
}
