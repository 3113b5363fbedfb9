package chat

import "github.com/echolens-ai/echolens/internal/logger"

// GetLogger returns the chat package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("chat")
}
