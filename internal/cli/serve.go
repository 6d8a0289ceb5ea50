package cli

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/Pein2017/codex-mcp-server/internal/config"
	"github.com/Pein2017/codex-mcp-server/internal/errors"
	"github.com/Pein2017/codex-mcp-server/internal/mcp"
)

func newServeCommand(cfg *config.Config) *cobra.Command {
	var (
		configFile      string
		serverName      string
		sessionTimeout  int
		disableSync     bool
		disableReview   bool
		disableSubagent bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Codex MCP server on stdio",
		Long: `Start the Model Context Protocol server that exposes the codex agent
to MCP clients. The transport is line-delimited JSON-RPC on stdin/stdout;
all diagnostics go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			serverConfig, err := mcp.LoadConfiguration(afero.NewOsFs(), configFile)
			if err != nil {
				return errors.ConfigErrorWithContext(err,
					"Check that the --config file exists and is valid YAML.")
			}

			if serverName != "" {
				serverConfig.ServerName = serverName
			}
			if sessionTimeout > 0 {
				serverConfig.SessionTimeoutSeconds = sessionTimeout
			}
			if disableSync {
				serverConfig.EnableSyncTools = false
			}
			if disableReview {
				serverConfig.EnableReviewTool = false
			}
			if disableSubagent {
				serverConfig.EnableSubagentTools = false
			}

			// Stdout belongs to the protocol; startup banners go to stderr.
			banner := color.New(color.FgGreen)
			banner.Fprintf(os.Stderr, "%s ready (agent binary: %s)\n", serverConfig.ServerName, cfg.CodexBin)

			server := mcp.NewServer(cfg, serverConfig)
			if err := server.Start(); err != nil {
				return errors.RuntimeError(fmt.Errorf("mcp server exited: %w", err))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Server configuration file (YAML)")
	cmd.Flags().StringVar(&serverName, "server-name", "", "Override the advertised server name")
	cmd.Flags().IntVar(&sessionTimeout, "session-timeout", 0, "Synchronous session idle timeout in seconds")
	cmd.Flags().BoolVar(&disableSync, "disable-sync-tools", false, "Do not register codex_exec/codex_reply")
	cmd.Flags().BoolVar(&disableReview, "disable-review-tool", false, "Do not register codex_review")
	cmd.Flags().BoolVar(&disableSubagent, "disable-subagent-tools", false, "Do not register the subagent job tools")

	return cmd
}
