package llm

import "github.com/echolens-ai/echolens/internal/logger"

// GetLogger returns the llm package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("llm")
}
