package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MrWong99/pictalk/internal/mcpserver"
)

func newMCPCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the pictogram tools over MCP on stdin/stdout",
		Long: `Serve resolve_symbol, suggest_symbols, process_utterance, list_categories
and get_progress as Model Context Protocol tools over stdio. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, cfg, nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Shutdown(context.Background()) }()

			return mcpserver.New(a, version, mcpserver.WithMetrics(a.Metrics())).Run(ctx)
		},
	}
}
