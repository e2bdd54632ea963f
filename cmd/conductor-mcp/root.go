package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pitabwire/conductor-mcp/internal/catalog"
	"github.com/pitabwire/conductor-mcp/internal/config"
	"github.com/pitabwire/conductor-mcp/internal/observability"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "conductor-mcp",
		Short:         "MCP server for Netflix Conductor",
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to configuration file")

	serve := newServeCmd(opts)
	root.AddCommand(serve)
	root.AddCommand(newOperationsCmd())
	root.AddCommand(newInvokeCmd(opts))

	// Bare invocation serves, which is how MCP clients launch the binary.
	root.RunE = serve.RunE

	return root
}

// setup loads configuration, the logger, and the catalog shared by every
// command that talks to Conductor.
func setup(opts *rootOptions) (*config.Config, *zap.Logger, *catalog.Catalog, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, nil, nil, err
	}

	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return nil, nil, nil, err
	}

	cat, err := catalog.Load()
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, err
	}
	return cfg, logger, cat, nil
}

// userAgent identifies this build to Conductor.
func userAgent() string {
	return "conductor-mcp/" + version
}
