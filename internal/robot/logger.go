package robot

import "github.com/echolens-ai/echolens/internal/logger"

// GetLogger returns the robot package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("robot")
}
