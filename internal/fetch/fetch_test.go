package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func Test_Fetcher_FetchAll_PreservesOrderAndExtractsTitles(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/a":
			fmt.Fprint(w, `<html><head><title>Page A</title></head><body><p>alpha body text</p></body></html>`)
		case "/b":
			fmt.Fprint(w, `plain text page without markup`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	f := New(&Config{Concurrency: 2})
	items, err := f.FetchAll(context.Background(), []Task{
		{URL: srv.URL + "/a", Title: "search title a", Query: "q1"},
		{URL: srv.URL + "/b", Title: "search title b", Query: "q2"},
		{URL: srv.URL + "/missing", Title: "gone", Query: "q3"},
	})
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("want 3 items, got %d", len(items))
	}

	// Page title beats the search-provided title.
	if items[0].Title != "Page A" {
		t.Errorf("item 0 title = %q, want page <title>", items[0].Title)
	}
	if items[0].Content == nil || !strings.Contains(*items[0].Content, "alpha body text") {
		t.Errorf("item 0 content = %v", items[0].Content)
	}
	if strings.Contains(*items[0].Content, "<") {
		t.Errorf("content still contains markup: %q", *items[0].Content)
	}

	// Non-HTML keeps the search title.
	if items[1].Title != "search title b" {
		t.Errorf("item 1 title = %q", items[1].Title)
	}
	if items[1].Content == nil || *items[1].Content != "plain text page without markup" {
		t.Errorf("item 1 content = %v", items[1].Content)
	}

	// A 404 yields nil content, not an error.
	if items[2].Content != nil {
		t.Errorf("item 2 content should be nil for a 404, got %q", *items[2].Content)
	}
	if items[2].URL != srv.URL+"/missing" || items[2].Query != "q3" {
		t.Errorf("item 2 provenance lost: %+v", items[2])
	}
}

func Test_Fetcher_FetchAll_UnreachableHostYieldsNilContent(t *testing.T) {
	t.Parallel()

	f := New(&Config{Timeout: 500 * time.Millisecond})
	items, err := f.FetchAll(context.Background(), []Task{
		{URL: "http://127.0.0.1:1/nope", Query: "q"},
	})
	if err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if items[0].Content != nil {
		t.Error("want nil content for unreachable host")
	}
}

func Test_Fetcher_FetchAll_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		mu.Lock()
		if n > peak.Load() {
			peak.Store(n)
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		fmt.Fprint(w, "ok")
	}))
	t.Cleanup(srv.Close)

	f := New(&Config{Concurrency: 2})
	tasks := make([]Task, 8)
	for i := range tasks {
		tasks[i] = Task{URL: fmt.Sprintf("%s/%d", srv.URL, i)}
	}
	if _, err := f.FetchAll(context.Background(), tasks); err != nil {
		t.Fatalf("fetch all: %v", err)
	}
	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", got)
	}
}

func Test_Fetch_ExtractTitle(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		`<title>Simple</title>`:                      "Simple",
		`<TITLE lang="en"> Spaced </TITLE>`:          "Spaced",
		`<html><body>no title here</body></html>`:    "",
		"<title>Multi\nline</title>":                 "Multi\nline",
	}
	for body, want := range cases {
		if got := extractTitle(body); got != want {
			t.Errorf("extractTitle(%q) = %q, want %q", body, got, want)
		}
	}
}

func Test_Fetch_NormalizeText_StripsScriptsAndTags(t *testing.T) {
	t.Parallel()

	body := `<html><head><style>body{color:red}</style><script>alert(1)</script></head>
		<body><h1>Heading</h1><p>one   two</p></body></html>`
	got := normalizeText(body)
	if got != "Heading one two" {
		t.Errorf("normalizeText = %q", got)
	}
}
