package commands

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/BenDundee/ravana/internal/fetch"
	"github.com/BenDundee/ravana/internal/logging"
)

// NewFetchCmd constructs the `ravana fetch` command, which downloads web
// pages and indexes their content.
func NewFetchCmd() *cobra.Command {
	var urls []string
	var query string

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Fetch web pages and index their content",
		Long: `Download one or more web pages concurrently, strip markup, chunk the
text, and index the chunks with {title, url} metadata. Pages that cannot
be fetched are skipped with a warning — one dead link never fails the
whole batch.

Examples:
  ravana fetch --url https://example.com/docs/intro
  ravana fetch --query "rate limiting" --url https://a.example --url https://b.example`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New("", "")
			ctx := logging.WithLogger(cmd.Context(), log)

			if len(urls) == 0 {
				return fmt.Errorf("fetch: at least one --url is required")
			}

			c, err := buildComponents(ctx, log, false)
			if err != nil {
				return fmt.Errorf("fetch: %w", err)
			}
			defer c.Close()

			tasks := make([]fetch.Task, 0, len(urls))
			for _, u := range urls {
				tasks = append(tasks, fetch.Task{URL: u, Query: query})
			}

			items, err := buildFetcher().FetchAll(ctx, tasks)
			if err != nil {
				return fmt.Errorf("fetch: %w", err)
			}

			ids, err := c.Pipeline.IngestSearchResults(ctx, items)
			if err != nil {
				return fmt.Errorf("fetch: %w", err)
			}

			log.Info("fetch complete",
				slog.Int("pages", len(urls)),
				slog.Int("chunks", len(ids)),
			)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&urls, "url", "u", nil, "Page URL to fetch and index (repeatable)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Search query recorded as provenance on indexed chunks")

	return cmd
}
