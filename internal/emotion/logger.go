package emotion

import "github.com/echolens-ai/echolens/internal/logger"

// GetLogger returns the emotion package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("emotion")
}
