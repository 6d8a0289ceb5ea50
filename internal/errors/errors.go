package errors

import (
	"fmt"
	"strings"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// ErrorTypeUnknown represents an unclassified error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeValidation represents argument/flag validation errors
	ErrorTypeValidation
	// ErrorTypeRuntime represents general runtime errors
	ErrorTypeRuntime
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig
)

// CLIError wraps errors with type information and context for better UX
type CLIError struct {
	Type    ErrorType
	Err     error
	Context string // Additional context or help text for the user
}

// Error implements the error interface
func (e *CLIError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%v\n%s", e.Err, e.Context)
	}
	return e.Err.Error()
}

// Unwrap implements error unwrapping for Go 1.13+ error chains
func (e *CLIError) Unwrap() error {
	return e.Err
}

// ValidationError creates a validation error (shows usage hints)
func ValidationError(err error, context string) *CLIError {
	return &CLIError{
		Type:    ErrorTypeValidation,
		Err:     err,
		Context: context,
	}
}

// RuntimeError creates a runtime error
func RuntimeError(err error) *CLIError {
	return &CLIError{
		Type: ErrorTypeRuntime,
		Err:  err,
	}
}

// ConfigError creates a configuration error
func ConfigError(err error) *CLIError {
	return &CLIError{
		Type: ErrorTypeConfig,
		Err:  err,
	}
}

// ConfigErrorWithContext creates a configuration error with context
func ConfigErrorWithContext(err error, context string) *CLIError {
	return &CLIError{
		Type:    ErrorTypeConfig,
		Err:     err,
		Context: context,
	}
}

// FormatError formats a CLIError for display to the user
func FormatError(err *CLIError) string {
	if err == nil {
		return ""
	}

	var sb strings.Builder
	switch err.Type {
	case ErrorTypeValidation:
		sb.WriteString("✗ Validation Error: ")
	case ErrorTypeConfig:
		sb.WriteString("✗ Configuration Error: ")
	default:
		sb.WriteString("✗ Error: ")
	}
	sb.WriteString(err.Err.Error())

	if err.Context != "" {
		sb.WriteString("\n\n")
		sb.WriteString(err.Context)
	}
	return sb.String()
}

// FormatSimple formats an error without requiring a CLIError
func FormatSimple(err error) string {
	if err == nil {
		return ""
	}
	if cliErr, ok := err.(*CLIError); ok {
		return FormatError(cliErr)
	}
	return fmt.Sprintf("✗ Error: %v", err)
}
