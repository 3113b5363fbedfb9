package telemetry

import "github.com/echolens-ai/echolens/internal/logger"

// GetLogger returns the telemetry package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}
