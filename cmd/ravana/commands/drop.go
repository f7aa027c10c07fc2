package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BenDundee/ravana/internal/logging"
)

// NewDropCmd constructs the `ravana drop` command, which deletes the
// collection and everything indexed in it.
func NewDropCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Delete the collection and all indexed chunks",
		Long: `Delete the configured collection from the vector store. All indexed
chunks are removed. This cannot be undone — re-run 'ravana init' to
rebuild the index from source documents.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.New("", "")
			ctx := logging.WithLogger(cmd.Context(), log)

			c, err := buildComponents(ctx, log, false)
			if err != nil {
				return fmt.Errorf("drop: %w", err)
			}
			defer c.Close()

			if !yes {
				fmt.Printf("drop collection %q and all indexed chunks? [y/N] ", c.Collection.Name())
				reader := bufio.NewReader(os.Stdin)
				answer, _ := reader.ReadString('\n')
				if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
					fmt.Println("aborted")
					return nil
				}
			}

			if err := c.Collection.Drop(ctx); err != nil {
				return fmt.Errorf("drop: %w", err)
			}
			fmt.Printf("collection %q dropped\n", c.Collection.Name())
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
