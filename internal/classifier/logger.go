package classifier

import "github.com/echolens-ai/echolens/internal/logger"

// GetLogger returns the classifier package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("classifier")
}
