package main

import (
	"fmt"
	"os"
	"time"

	"github.com/Pein2017/codex-mcp-server/internal/cli"
	"github.com/Pein2017/codex-mcp-server/internal/config"
	"github.com/Pein2017/codex-mcp-server/internal/errors"
	"github.com/Pein2017/codex-mcp-server/internal/sentry"
	"github.com/Pein2017/codex-mcp-server/internal/version"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(errors.ExitCodeConfig)
	}

	// Optional, env-gated; a missing DSN makes this a no-op.
	if err := sentry.Initialize(version.Version); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	defer sentry.Flush(2 * time.Second)

	if err := cli.Execute(cfg); err != nil {
		sentry.CaptureError(err, nil, nil)
		fmt.Fprintln(os.Stderr, errors.FormatSimple(err))
		os.Exit(errors.ExitCodeFromError(err))
	}
}
