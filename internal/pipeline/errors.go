package pipeline

import "github.com/echolens-ai/echolens/internal/errors"

// ComponentPipeline is the component identifier for pipeline errors.
const ComponentPipeline = "pipeline"

var (
	// ErrThrottled is returned by SetMode inside the mode switch cooldown.
	ErrThrottled = errors.Newf("mode change throttled").
			Component(ComponentPipeline).
			Category(errors.CategoryThrottled).
			Build()

	// ErrInvalidMode is returned for an unknown pipeline mode.
	ErrInvalidMode = errors.Newf("invalid pipeline mode").
			Component(ComponentPipeline).
			Category(errors.CategoryValidation).
			Build()
)
