// Package observability provides Prometheus metrics for the EchoLens components.
// Error reporting is handled in the telemetry package.
package observability

import "github.com/echolens-ai/echolens/internal/logger"

// GetLogger returns the observability package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("observability")
}
