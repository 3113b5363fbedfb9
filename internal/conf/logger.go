// Package conf provides configuration management for EchoLens.
package conf

import "github.com/echolens-ai/echolens/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
// The logger is fetched from the global logger each time so it follows
// the central logger once it has been installed.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
