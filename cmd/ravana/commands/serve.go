package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/BenDundee/ravana/internal/logging"
	"github.com/BenDundee/ravana/internal/server"
)

// NewServeCmd constructs the `ravana serve` command, which starts the HTTP
// server exposing the index over a REST API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ravana HTTP server",
		Long: `Start the ravana HTTP server on localhost.

The server exposes similarity queries (POST /api/query), document
ingestion (POST /api/documents), deletion (DELETE /api/documents), and
operational endpoints (/api/health, /api/ready, /metrics).

Set RAVANA_API_KEY to require Bearer token authentication on /api routes.

Examples:
  ravana serve
  ravana serve --port 9090
  STORE_BACKEND=qdrant ravana serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New("", "")
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("store", getEnvOrDefault("STORE_BACKEND", "local")))

			c, err := buildComponents(ctx, log, false)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer c.Close()

			pingers := []server.Pinger{
				server.NewStorePinger(c.Store, c.StoreName),
			}

			srv, err := server.New(c.Retriever, c.Pipeline, c.Collection, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("RAVANA_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
