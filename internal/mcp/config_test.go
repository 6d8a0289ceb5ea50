package mcp

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigurationDefaults(t *testing.T) {
	cfg, err := LoadConfiguration(afero.NewMemMapFs(), "")
	require.NoError(t, err)
	assert.Equal(t, "Codex MCP Server", cfg.ServerName)
	assert.Equal(t, 3600, cfg.SessionTimeoutSeconds)
	assert.True(t, cfg.EnableSyncTools)
	assert.True(t, cfg.EnableSubagentTools)
	assert.True(t, cfg.EnableReviewTool)
}

func TestLoadConfigurationFromFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := `server_name: Custom Server
session_timeout: 120
enable_review_tool: false
`
	require.NoError(t, afero.WriteFile(fs, "/etc/codex-mcp.yaml", []byte(content), 0o644))

	cfg, err := LoadConfiguration(fs, "/etc/codex-mcp.yaml")
	require.NoError(t, err)
	assert.Equal(t, "Custom Server", cfg.ServerName)
	assert.Equal(t, 120, cfg.SessionTimeoutSeconds)
	assert.False(t, cfg.EnableReviewTool)
	// Fields absent from the file keep their defaults.
	assert.True(t, cfg.EnableSyncTools)
	assert.Equal(t, "1.0.0", cfg.ServerVersion)
}

func TestLoadConfigurationErrors(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := LoadConfiguration(fs, "/missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")

	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("{not yaml"), 0o644))
	_, err = LoadConfiguration(fs, "/bad.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse")
}
