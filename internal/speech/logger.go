package speech

import "github.com/echolens-ai/echolens/internal/logger"

// GetLogger returns the speech package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("speech")
}
