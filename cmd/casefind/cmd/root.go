// Package cmd provides the CLI commands for casefind.
package cmd

import (
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nyayatech/casefind/internal/config"
	"github.com/nyayatech/casefind/internal/logging"
	"github.com/nyayatech/casefind/internal/rerank"
	"github.com/nyayatech/casefind/internal/search"
	"github.com/nyayatech/casefind/internal/store"
	"github.com/nyayatech/casefind/internal/vector"
	"github.com/nyayatech/casefind/pkg/version"
)

var (
	cfgPath  string
	logLevel string
	dataDir  string

	cfg *config.Config
)

// NewRootCmd creates the root command for the casefind CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "casefind",
		Short: "Hybrid case-law search engine",
		Long: `Casefind combines dense semantic search with structured metadata
filtering over a case-law corpus, fused into a single ranked result list.

It serves results on the command line or over MCP for AI assistants.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load(cfgPath)
			if err != nil {
				return err
			}
			if logLevel != "" {
				cfg.Server.LogLevel = logLevel
			}
			if dataDir != "" {
				cfg.Paths.DataDir = dataDir
			}

			logging.Setup(logging.Config{
				Level: cfg.Server.LogLevel,
				Text:  isatty.IsTerminal(os.Stderr.Fd()),
			})
			return nil
		},
	}

	cmd.SetVersionTemplate("casefind version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "casefind.yaml", "Path to the config file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory override")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newLoadCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// vectorIndexPath is where the dense index persists inside the data dir.
func vectorIndexPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, "vectors.gob")
}

// components holds the wired search stack for a command invocation.
type components struct {
	meta store.MetadataStore
	idx  *vector.HNSWIndex
	orch *search.Orchestrator
}

// openComponents wires the store, vector index, reranker, and
// orchestrator from configuration.
func openComponents(cfg *config.Config) (*components, error) {
	meta, err := store.Open(cfg.Search.MetadataBackend, cfg.Paths.DataDir)
	if err != nil {
		return nil, err
	}

	embedder, err := vector.NewOpenAIEmbedder(cfg.Embeddings.Host, cfg.Embeddings.Model, "")
	if err != nil {
		_ = meta.Close()
		return nil, err
	}

	idx, err := vector.NewHNSWIndex(embedder, cfg.Embeddings.Dimensions)
	if err != nil {
		_ = meta.Close()
		return nil, err
	}
	if err := idx.Load(vectorIndexPath(cfg)); err != nil {
		_ = meta.Close()
		return nil, err
	}

	engine := search.NewEngine(rerank.NewService(cfg.Reranker))
	orch, err := search.NewOrchestrator(meta, idx, engine, search.OptionsFromConfig(cfg.Search))
	if err != nil {
		_ = idx.Close()
		_ = meta.Close()
		return nil, err
	}

	return &components{meta: meta, idx: idx, orch: orch}, nil
}

// Close releases every component. The orchestrator owns the store and
// the index.
func (c *components) Close() error {
	return c.orch.Close()
}
