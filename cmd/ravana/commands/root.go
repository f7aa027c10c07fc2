// Package commands defines all Cobra CLI commands for the ravana binary.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/BenDundee/ravana/internal/audit"
	"github.com/BenDundee/ravana/internal/config"
	"github.com/BenDundee/ravana/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ravana",
		Short: "ravana — document indexing and semantic retrieval engine",
		Long: `ravana chunks documents into token windows, embeds them, and indexes
them in a persistent vector store for similarity search.

It supports an embedded local store (SQLite) and Qdrant as backends,
selected via STORE_BACKEND or a YAML config file (~/.ravana/config.yaml).
See 'ravana --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New("", "")

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.ravana/config.yaml)")

	root.AddCommand(
		NewInitCmd(),
		NewQueryCmd(),
		NewFetchCmd(),
		NewDropCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
