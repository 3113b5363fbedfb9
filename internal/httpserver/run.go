package httpserver

import (
	"context"
	"time"
)

// Run serves until ctx is cancelled, then shuts srv down within timeout.
// It returns the serve error, or the shutdown error when shutdown fails.
func Run(ctx context.Context, srv Server, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
