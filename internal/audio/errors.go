package audio

import (
	"github.com/echolens-ai/echolens/internal/errors"
)

// ComponentAudio is the component identifier for audio errors.
const ComponentAudio = "audio"

var (
	// ErrNoFrame is returned by NextFrame when no frame is available within the timeout.
	ErrNoFrame = errors.Newf("no audio frame available").
			Component(ComponentAudio).
			Category(errors.CategoryTimeout).
			Build()

	// ErrDeviceUnavailable is returned by Start when the capture device cannot be opened.
	ErrDeviceUnavailable = errors.Newf("audio device unavailable").
				Component(ComponentAudio).
				Category(errors.CategoryAudioDevice).
				Build()

	// ErrNotStarted is returned by NextFrame before Start or after Stop.
	ErrNotStarted = errors.Newf("audio source not started").
			Component(ComponentAudio).
			Category(errors.CategoryState).
			Build()

	// ErrUnsupportedFormat is returned by DecodeFile for unknown or invalid files.
	ErrUnsupportedFormat = errors.Newf("unsupported audio format").
				Component(ComponentAudio).
				Category(errors.CategoryAudioDecode).
				Build()
)
