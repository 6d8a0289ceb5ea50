package config

import (
	"os"
	"strconv"
)

// Environment variables consulted by the server. DefaultSandbox and
// MaxConcurrentJobs are re-read at every spawn rather than cached, so
// external orchestration can change them without a restart.
const (
	EnvCodexBin          = "CODEX_MCP_BIN"
	EnvDefaultSandbox    = "CODEX_MCP_DEFAULT_SANDBOX"
	EnvMaxConcurrentJobs = "CODEX_MCP_MAX_CONCURRENT_JOBS"
	EnvDebug             = "CODEX_MCP_DEBUG"
)

// DefaultMaxConcurrentJobs is the admission cap used when the environment
// does not provide a valid override.
const DefaultMaxConcurrentJobs = 32

type Config struct {
	CodexBin string
	Debug    bool
}

func Load() (*Config, error) {
	bin := os.Getenv(EnvCodexBin)
	if bin == "" {
		bin = "codex"
	}

	return &Config{
		CodexBin: bin,
		Debug:    os.Getenv(EnvDebug) == "true",
	}, nil
}

// DefaultSandbox returns the server-wide default sandbox policy, or "" when
// none is configured. Validation against the known policy names happens at
// resolution time.
func DefaultSandbox() string {
	return os.Getenv(EnvDefaultSandbox)
}

// MaxConcurrentJobs returns the subagent admission cap. Absent or invalid
// values fall back to DefaultMaxConcurrentJobs.
func MaxConcurrentJobs() int {
	raw := os.Getenv(EnvMaxConcurrentJobs)
	if raw == "" {
		return DefaultMaxConcurrentJobs
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return DefaultMaxConcurrentJobs
	}
	return n
}
