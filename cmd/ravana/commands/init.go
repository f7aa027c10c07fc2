package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/BenDundee/ravana/internal/logging"
)

// NewInitCmd constructs the `ravana init` command, which seeds the index
// from processed document files on disk.
func NewInitCmd() *cobra.Command {
	var recreate bool

	cmd := &cobra.Command{
		Use:   "init [file|glob ...]",
		Short: "Seed the index from processed document files",
		Long: `Read processed document files (JSON with "document" and "metadata"
fields), chunk them into token windows, embed each chunk, and index the
results in the vector store.

With --recreate, existing collection storage is wiped first so the index
is rebuilt from scratch. Without it, documents are added to whatever is
already indexed.

Examples:
  ravana init data/processed/*.json
  ravana init --recreate data/processed/*.json
  STORE_BACKEND=qdrant ravana init data/processed/*.json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New("", "")
			ctx := logging.WithLogger(cmd.Context(), log)

			paths := make([]string, 0, len(args))
			for _, arg := range args {
				matches, err := filepath.Glob(arg)
				if err != nil {
					return fmt.Errorf("init: bad pattern %q: %w", arg, err)
				}
				if matches == nil {
					// Not a pattern — treat as a literal path so missing
					// files fail loudly in the pipeline.
					matches = []string{arg}
				}
				paths = append(paths, matches...)
			}

			c, err := buildComponents(ctx, log, recreate)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}
			defer c.Close()

			ids, err := c.Pipeline.Initialize(ctx, paths)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}

			count, err := c.Collection.Count(ctx)
			if err != nil {
				return fmt.Errorf("init: %w", err)
			}

			log.Info("index initialised",
				slog.Int("files", len(paths)),
				slog.Int("chunks", len(ids)),
				slog.Int("total_indexed", count),
			)
			return nil
		},
	}

	cmd.Flags().BoolVar(&recreate, "recreate", false, "Wipe existing collection storage before indexing")

	return cmd
}
