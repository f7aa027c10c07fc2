// Package fetch retrieves web pages for ingestion. Pages are fetched
// concurrently by a bounded worker pool; a page that cannot be fetched
// yields a result with nil content rather than failing the batch, so the
// ingestion pipeline can filter it out and keep the rest.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BenDundee/ravana/internal/index"
	"github.com/BenDundee/ravana/internal/logging"
)

// Config holds the settings for a Fetcher.
type Config struct {
	// Timeout bounds each individual page fetch. Defaults to 30s if zero.
	Timeout time.Duration

	// Concurrency is the maximum number of in-flight fetches.
	// Defaults to 4 if zero.
	Concurrency int

	// UserAgent is the HTTP User-Agent header sent with fetch requests.
	UserAgent string

	// MaxBodyBytes caps how much of a response body is read.
	// Defaults to 2 MiB if zero.
	MaxBodyBytes int64
}

// Fetcher downloads pages and converts them into search result items ready
// for ingestion. It is safe for concurrent use.
type Fetcher struct {
	cfg    *Config
	client *http.Client
}

// New constructs a Fetcher from the given config, filling in defaults.
func New(cfg *Config) *Fetcher {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "ravana/1.0 (document ingestion)"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 2 << 20
	}
	return &Fetcher{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Task names one page to fetch, tagged with the search query that produced
// it so the stored metadata records provenance.
type Task struct {
	// URL is the HTTP(S) URL of the page.
	URL string

	// Title is the result title reported by the search backend. When the
	// fetched page carries a <title> element, that wins.
	Title string

	// Query is the search query this result answered.
	Query string
}

// FetchAll downloads every task's page with bounded concurrency and returns
// one item per task, in task order. A failed or non-200 fetch produces an
// item with nil Content; only context cancellation aborts the batch.
func (f *Fetcher) FetchAll(ctx context.Context, tasks []Task) ([]index.SearchResultItem, error) {
	items := make([]index.SearchResultItem, len(tasks))
	log := logging.FromContext(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Concurrency)

	for i, task := range tasks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			item := index.SearchResultItem{
				URL:   task.URL,
				Title: task.Title,
				Query: task.Query,
			}
			body, err := f.fetch(gctx, task.URL)
			if err != nil {
				log.Warn("page fetch failed",
					slog.String("url", task.URL),
					slog.String("error", err.Error()),
				)
			} else {
				if title := extractTitle(body); title != "" {
					item.Title = title
				}
				text := normalizeText(body)
				item.Content = &text
			}
			items[i] = item
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return items, nil
}

// fetch retrieves the raw content of a URL, capped at MaxBodyBytes.
func (f *Fetcher) fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html, text/plain")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(body), nil
}

var (
	titleRe  = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
	scriptRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
)

// extractTitle pulls the <title> text out of an HTML page, or returns "".
func extractTitle(body string) string {
	m := titleRe.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// normalizeText strips script/style blocks and HTML tags and collapses
// whitespace, leaving plain text for chunking. Non-HTML input passes
// through with whitespace normalized.
func normalizeText(body string) string {
	text := scriptRe.ReplaceAllString(body, " ")
	text = tagRe.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(text), " ")
}
