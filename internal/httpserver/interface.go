// Package httpserver defines the contract between the serve command and the
// HTTP server, so the command can run and stop it without knowing its routes.
package httpserver

import (
	"context"

	"github.com/echolens-ai/echolens/internal/api"
)

// Server is an HTTP server with a blocking serve loop and graceful shutdown.
type Server interface {
	// ListenAndServe blocks until the server stops. A clean shutdown returns nil.
	ListenAndServe() error

	// Shutdown gracefully stops the server and releases resources.
	Shutdown(ctx context.Context) error
}

var _ Server = (*api.Server)(nil)
