package pipeline

import "github.com/echolens-ai/echolens/internal/logger"

// GetLogger returns the pipeline package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("pipeline")
}
