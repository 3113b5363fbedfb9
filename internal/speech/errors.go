package speech

import "github.com/echolens-ai/echolens/internal/errors"

// ComponentSpeech is the component identifier for speech errors.
const ComponentSpeech = "speech"

var (
	// ErrNoSpeech is returned when the audio holds no recognisable speech.
	// It is expected for most frames and is not logged.
	ErrNoSpeech = errors.Newf("no speech recognised").
			Component(ComponentSpeech).
			Category(errors.CategoryNotFound).
			Build()

	// ErrService is returned when the recognition service fails.
	ErrService = errors.Newf("speech service error").
			Component(ComponentSpeech).
			Category(errors.CategoryRemoteService).
			Build()
)
