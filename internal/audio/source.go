package audio

import (
	"context"
	"time"
)

// Source produces audio frames for the pipeline.
type Source interface {
	// Start begins producing frames.
	Start(ctx context.Context) error
	// Stop halts the source. Stopping a stopped source is a no-op.
	Stop() error
	// NextFrame waits up to timeout for the next frame and returns ErrNoFrame when none arrived.
	NextFrame(ctx context.Context, timeout time.Duration) (Frame, error)
	// Name identifies the source in logs and status output.
	Name() string
}
