package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvCodexBin, "")
	t.Setenv(EnvDebug, "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "codex", cfg.CodexBin)
	assert.False(t, cfg.Debug)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv(EnvCodexBin, "/opt/codex/bin/codex")
	t.Setenv(EnvDebug, "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/opt/codex/bin/codex", cfg.CodexBin)
	assert.True(t, cfg.Debug)
}

func TestDefaultSandbox(t *testing.T) {
	t.Setenv(EnvDefaultSandbox, "")
	assert.Empty(t, DefaultSandbox())

	t.Setenv(EnvDefaultSandbox, "read-only")
	assert.Equal(t, "read-only", DefaultSandbox())
}

func TestMaxConcurrentJobs(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected int
	}{
		{"unset falls back", "", DefaultMaxConcurrentJobs},
		{"valid value", "8", 8},
		{"one is allowed", "1", 1},
		{"zero falls back", "0", DefaultMaxConcurrentJobs},
		{"negative falls back", "-4", DefaultMaxConcurrentJobs},
		{"garbage falls back", "plenty", DefaultMaxConcurrentJobs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvMaxConcurrentJobs, tt.value)
			assert.Equal(t, tt.expected, MaxConcurrentJobs())
		})
	}
}
