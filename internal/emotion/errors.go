package emotion

import "github.com/echolens-ai/echolens/internal/errors"

// ComponentEmotion is the component identifier for emotion errors.
const ComponentEmotion = "emotion"

var (
	// ErrService is returned when the remote analysis fails.
	ErrService = errors.Newf("emotion service error").
			Component(ComponentEmotion).
			Category(errors.CategoryRemoteService).
			Build()

	// ErrMalformedResponse is returned when the remote reply cannot be used.
	ErrMalformedResponse = errors.Newf("malformed emotion response").
				Component(ComponentEmotion).
				Category(errors.CategoryMalformedResponse).
				Build()
)
