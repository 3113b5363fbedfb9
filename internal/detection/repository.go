package detection

import (
	"context"
)

// Repository mirrors pipeline results to durable storage.
// The pipeline works in-memory only when no repository is configured.
type Repository interface {
	SaveTranscription(ctx context.Context, t *Transcription) error
	SaveSoundAlert(ctx context.Context, a *SoundAlert) error
}

// Handler receives every result after it has been appended to its sink.
// Implementations must return promptly; slow work belongs in their own goroutines.
type Handler interface {
	HandleSoundAlert(ctx context.Context, a SoundAlert) error
	HandleTranscription(ctx context.Context, t Transcription) error
}
