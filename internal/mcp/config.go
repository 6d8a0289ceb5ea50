package mcp

import (
	"fmt"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Configuration defines configuration for the MCP server
type Configuration struct {
	ServerName            string `json:"server_name" yaml:"server_name"`
	ServerVersion         string `json:"server_version" yaml:"server_version"`
	SessionTimeoutSeconds int    `json:"session_timeout" yaml:"session_timeout"`
	EnableSyncTools       bool   `json:"enable_sync_tools" yaml:"enable_sync_tools"`
	EnableSubagentTools   bool   `json:"enable_subagent_tools" yaml:"enable_subagent_tools"`
	EnableReviewTool      bool   `json:"enable_review_tool" yaml:"enable_review_tool"`
}

// DefaultConfiguration returns the configuration used when no file is
// provided: every tool surface enabled, one hour session timeout.
func DefaultConfiguration() *Configuration {
	return &Configuration{
		ServerName:            "Codex MCP Server",
		ServerVersion:         "1.0.0",
		SessionTimeoutSeconds: 3600,
		EnableSyncTools:       true,
		EnableSubagentTools:   true,
		EnableReviewTool:      true,
	}
}

// LoadConfiguration reads a YAML configuration file through the provided
// filesystem. Fields left unset in the file keep their defaults.
func LoadConfiguration(fs afero.Fs, path string) (*Configuration, error) {
	cfg := DefaultConfiguration()
	if path == "" {
		return cfg, nil
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read server configuration %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server configuration %s: %w", path, err)
	}
	return cfg, nil
}
