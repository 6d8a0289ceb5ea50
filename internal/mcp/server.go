package mcp

import (
	"fmt"
	"log"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/Pein2017/codex-mcp-server/internal/codex"
	"github.com/Pein2017/codex-mcp-server/internal/config"
	"github.com/Pein2017/codex-mcp-server/internal/mcp/session"
)

// Server exposes the codex subagent manager and the synchronous exec tools
// over the MCP stdio transport.
type Server struct {
	config       *config.Config
	serverConfig *Configuration
	manager      *codex.Manager
	sessions     *session.Manager
	server       *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, serverConfig *Configuration) *Server {
	if serverConfig == nil {
		serverConfig = DefaultConfiguration()
	}
	return &Server{
		config:       cfg,
		serverConfig: serverConfig,
		manager:      codex.NewManager(cfg.CodexBin),
		sessions:     session.NewManager(time.Duration(serverConfig.SessionTimeoutSeconds) * time.Second),
	}
}

// Manager exposes the job manager, mainly for tests.
func (s *Server) Manager() *codex.Manager {
	return s.manager
}

// Start initializes and starts the MCP server on stdio
func (s *Server) Start() error {
	mcpServer := server.NewMCPServer(
		s.serverConfig.ServerName,
		s.serverConfig.ServerVersion,
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	s.server = mcpServer

	if err := s.addTools(); err != nil {
		return fmt.Errorf("failed to add tools: %w", err)
	}

	log.Printf("Starting %s (agent binary: %s)...", s.serverConfig.ServerName, s.config.CodexBin)
	return server.ServeStdio(mcpServer)
}

// addTools registers all available tools
func (s *Server) addTools() error {
	s.addUtilityTools()

	if s.serverConfig.EnableSyncTools {
		s.addExecTools()
	}
	if s.serverConfig.EnableReviewTool {
		s.addReviewTool()
	}
	if s.serverConfig.EnableSubagentTools {
		s.addSubagentTools()
	}
	return nil
}
