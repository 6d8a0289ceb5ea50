package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Pein2017/codex-mcp-server/internal/version"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "📋 Show server version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Codex MCP Server %s\n", version.GetVersion())
		},
	}
}
