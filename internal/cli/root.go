package cli

import (
	"github.com/spf13/cobra"

	"github.com/Pein2017/codex-mcp-server/internal/config"
)

func Execute(cfg *config.Config) error {
	rootCmd := &cobra.Command{
		Use:   "codex-mcp-server",
		Short: "🤖 Codex MCP Server - expose the codex CLI agent as MCP tools",
		Long: `Codex MCP Server

Exposes the codex command-line agent to MCP clients over stdio. Coordinators
can run the agent synchronously, or dispatch asynchronous subagent jobs with
status polling, incremental event streams, cancellation and interrupt/respawn.

Quick Start:
  • Start the server:        codex-mcp-server serve
  • Custom agent binary:     CODEX_MCP_BIN=/usr/local/bin/codex codex-mcp-server serve
  • Default sandbox policy:  CODEX_MCP_DEFAULT_SANDBOX=read-only codex-mcp-server serve`,
		Example: `  # Serve on stdio with defaults
  codex-mcp-server serve

  # Serve with a configuration file
  codex-mcp-server serve --config server.yaml`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newServeCommand(cfg),
		newVersionCommand(),
	)

	return rootCmd.Execute()
}
