package ingest

import (
	"context"
	"errors"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BenDundee/ravana/internal/chunk"
	"github.com/BenDundee/ravana/internal/index"
)

// wordCodec treats each whitespace-separated word as one token, keeping the
// window arithmetic legible without a real BPE vocabulary. Encode fills the
// reverse table Decode reads from; each test owns its codec, so there is no
// cross-test sharing.
type wordCodec struct{ table map[int]string }

func newWordCodec() *wordCodec { return &wordCodec{table: map[int]string{}} }

func (c *wordCodec) Encode(text string) []int {
	words := strings.Fields(text)
	ids := make([]int, len(words))
	for i, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		id := int(h.Sum32())
		c.table[id] = w
		ids[i] = id
	}
	return ids
}

func (c *wordCodec) Decode(ids []int) string {
	words := make([]string, len(ids))
	for i, id := range ids {
		words[i] = c.table[id]
	}
	return strings.Join(words, " ")
}

// bagEmbedder hashes words into a fixed-size bag-of-words vector, giving
// deterministic embeddings where near-identical texts land near each other.
type bagEmbedder struct{ dim int }

func (e bagEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dim)
		for _, w := range strings.Fields(text) {
			h := fnv.New32a()
			h.Write([]byte(w))
			vec[int(h.Sum32())%e.dim]++
		}
		out[i] = vec
	}
	return out, nil
}

func newTestPipeline(t *testing.T, size, overlap int) (*Pipeline, *index.Collection) {
	t.Helper()

	store, err := index.OpenLocal(&index.LocalConfig{
		Dir:        t.TempDir(),
		Collection: "pipeline-test",
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	coll, err := index.Attach(bagEmbedder{dim: 16}, store, &index.Config{Name: "pipeline-test"})
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	chunker, err := chunk.New(newWordCodec(), size, overlap)
	if err != nil {
		t.Fatalf("chunker: %v", err)
	}
	p, err := NewPipeline(chunker, coll)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	return p, coll
}

func Test_Pipeline_IngestDocuments_EndToEnd(t *testing.T) {
	t.Parallel()

	p, coll := newTestPipeline(t, 4, 1)
	ctx := context.Background()

	const text = "alpha bravo charlie delta echo foxtrot golf hotel"

	ids, err := p.IngestDocuments(ctx, []index.DocumentRecord{
		{Document: text, Metadata: map[string]string{"source": "phonetic"}},
	})
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	// 8 words, window 4, overlap 1 -> windows of word-index [0,4), [3,7), [6,8).
	if len(ids) != 3 {
		t.Fatalf("want 3 chunk ids, got %d", len(ids))
	}
	if n, err := coll.Count(ctx); err != nil || n != 3 {
		t.Fatalf("count = %d, %v; want 3", n, err)
	}

	res, err := coll.Query(ctx, "alpha bravo charlie delta", 1, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(res.Results) != 1 {
		t.Fatalf("want 1 result, got %d", len(res.Results))
	}
	if got := res.Results[0].Text; got != "alpha bravo charlie delta" {
		t.Errorf("nearest chunk = %q, want first window", got)
	}
	if got := res.Results[0].Metadata["source"]; got != "phonetic" {
		t.Errorf("metadata not carried through: %v", res.Results[0].Metadata)
	}
}

func Test_Pipeline_IngestDocuments_FailsFastOnEmptyDocument(t *testing.T) {
	t.Parallel()

	p, coll := newTestPipeline(t, 4, 1)
	ctx := context.Background()

	_, err := p.IngestDocuments(ctx, []index.DocumentRecord{
		{Document: "fine document", Metadata: map[string]string{"id": "ok"}},
		{Document: "", Metadata: map[string]string{"id": "broken"}},
	})
	if err == nil {
		t.Fatal("want error for empty document, got nil")
	}

	var recErr *index.RecordError
	if !errors.As(err, &recErr) {
		t.Fatalf("want RecordError, got %T: %v", err, err)
	}
	if recErr.Metadata["id"] != "broken" {
		t.Errorf("error names wrong record: %v", recErr.Metadata)
	}
	// Fail-fast means the good record was never added either.
	if n, _ := coll.Count(ctx); n != 0 {
		t.Errorf("count = %d after failed ingest, want 0", n)
	}
}

func Test_Pipeline_IngestSearchResults_FiltersMissingContent(t *testing.T) {
	t.Parallel()

	p, coll := newTestPipeline(t, 10, 0)
	ctx := context.Background()

	content := "useful page body"

	ids, err := p.IngestSearchResults(ctx, []index.SearchResultItem{
		{URL: "https://a.example", Title: "Dead link", Content: nil, Query: "q"},
		{URL: "https://b.example", Title: "Good page", Content: &content, Query: "q"},
	})
	if err != nil {
		t.Fatalf("ingest search results: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("want 1 chunk from the one fetchable page, got %d", len(ids))
	}

	res, err := coll.Query(ctx, content, 1, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	meta := res.Results[0].Metadata
	if meta["url"] != "https://b.example" || meta["title"] != "Good page" {
		t.Errorf("search result metadata = %v", meta)
	}
}

func Test_Pipeline_IngestSearchResults_AllFilteredIsError(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(t, 10, 0)

	_, err := p.IngestSearchResults(context.Background(), []index.SearchResultItem{
		{URL: "https://a.example", Content: nil},
		{URL: "https://b.example", Content: nil},
	})
	if !errors.Is(err, index.ErrPrecondition) {
		t.Fatalf("want ErrPrecondition when nothing has content, got %v", err)
	}
}

func Test_Pipeline_Initialize_ReadsRecordFiles(t *testing.T) {
	t.Parallel()

	p, coll := newTestPipeline(t, 10, 0)
	ctx := context.Background()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "one.json"),
		`{"document":"first seed document","metadata":{"name":"one"}}`)
	writeFile(t, filepath.Join(dir, "two.json"),
		`{"document":"second seed document","metadata":{"name":"two"}}`)

	ids, err := p.Initialize(ctx, []string{
		filepath.Join(dir, "one.json"),
		filepath.Join(dir, "two.json"),
	})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("want 2 chunk ids, got %d", len(ids))
	}
	if n, _ := coll.Count(ctx); n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func Test_Pipeline_Initialize_MalformedFileFailsFast(t *testing.T) {
	t.Parallel()

	p, coll := newTestPipeline(t, 10, 0)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good.json"),
		`{"document":"valid document","metadata":{"name":"good"}}`)
	writeFile(t, filepath.Join(dir, "bad.json"), `{not json`)

	_, err := p.Initialize(context.Background(), []string{
		filepath.Join(dir, "good.json"),
		filepath.Join(dir, "bad.json"),
	})
	var recErr *index.RecordError
	if !errors.As(err, &recErr) {
		t.Fatalf("want RecordError for malformed file, got %v", err)
	}
	if !strings.HasSuffix(recErr.Metadata["file"], "bad.json") {
		t.Errorf("error names wrong file: %v", recErr.Metadata)
	}
	if n, _ := coll.Count(context.Background()); n != 0 {
		t.Errorf("count = %d after failed initialize, want 0", n)
	}
}

func Test_Pipeline_Initialize_MissingFieldsRejected(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(t, 10, 0)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "nometa.json"), `{"document":"text without metadata"}`)

	_, err := p.Initialize(context.Background(), []string{filepath.Join(dir, "nometa.json")})
	var recErr *index.RecordError
	if !errors.As(err, &recErr) {
		t.Fatalf("want RecordError for missing metadata, got %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
