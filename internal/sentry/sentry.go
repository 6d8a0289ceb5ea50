package sentry

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

// Initialize sets up Sentry if SENTRY_DSN is provided. Without a DSN every
// helper in this package is a no-op, so callers never need to check whether
// reporting is enabled.
func Initialize(version string) error {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		return nil
	}

	environment := os.Getenv("SENTRY_ENVIRONMENT")
	if environment == "" {
		environment = "production"
	}

	debug := os.Getenv("SENTRY_DEBUG") == "true"

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          version,
		Debug:            debug,
		AttachStacktrace: true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	return nil
}

// Flush waits for all events to be sent
func Flush(timeout time.Duration) {
	if sentry.CurrentHub().Client() != nil {
		sentry.Flush(timeout)
	}
}

// CaptureError captures an error with additional context
func CaptureError(err error, tags map[string]string, extras map[string]interface{}) {
	if sentry.CurrentHub().Client() == nil || err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		for k, v := range extras {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(err)
	})
}

// AddBreadcrumb adds a breadcrumb for debugging
func AddBreadcrumb(category, message string, data map[string]interface{}) {
	if sentry.CurrentHub().Client() != nil {
		sentry.AddBreadcrumb(&sentry.Breadcrumb{
			Category:  category,
			Message:   message,
			Level:     sentry.LevelInfo,
			Data:      data,
			Timestamp: time.Now(),
		})
	}
}
