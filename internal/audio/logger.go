package audio

import "github.com/echolens-ai/echolens/internal/logger"

// GetLogger returns the audio package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("audio")
}
