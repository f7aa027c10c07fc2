package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/BenDundee/ravana/internal/logging"
)

// NewQueryCmd constructs the `ravana query` command, which runs a similarity
// search against the index and prints the nearest chunks.
func NewQueryCmd() *cobra.Command {
	var k int
	var filters map[string]string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "query [text]",
		Short: "Search the index for chunks similar to the query text",
		Long: `Embed the query text and return the nearest indexed chunks by
ascending distance. The result count is clamped to the number of chunks
actually indexed, so over-asking on a small index is never an error.

Examples:
  ravana query "how do I rotate credentials?"
  ravana query -k 10 "incident response runbook"
  ravana query --filter source=handbook "vacation policy"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New("", "")
			ctx := logging.WithLogger(cmd.Context(), log)

			c, err := buildComponents(ctx, log, false)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			defer c.Close()

			res, err := c.Retriever.Retrieve(ctx, args[0], k, filters)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(res)
			}

			if len(res.Results) == 0 {
				fmt.Println("no results")
				return nil
			}
			for i, chunk := range res.Results {
				fmt.Printf("--- %d. %s (distance %.4f)\n", i+1, chunk.ID, chunk.Distance)
				for mk, mv := range chunk.Metadata {
					fmt.Printf("    %s: %s\n", mk, mv)
				}
				fmt.Println(chunk.Text)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&k, "results", "k", 0, "Number of results to return (0 = configured default)")
	cmd.Flags().StringToStringVar(&filters, "filter", nil, "Metadata filter as key=value (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print results as JSON")

	return cmd
}
