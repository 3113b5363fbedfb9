package llm

import "github.com/echolens-ai/echolens/internal/errors"

// ComponentLLM is the component identifier for llm errors.
const ComponentLLM = "llm"

var (
	// ErrService is returned when the completion request fails.
	ErrService = errors.Newf("llm service error").
			Component(ComponentLLM).
			Category(errors.CategoryRemoteService).
			Build()

	// ErrEmptyResponse is returned when the model replies without content.
	ErrEmptyResponse = errors.Newf("llm returned an empty response").
				Component(ComponentLLM).
				Category(errors.CategoryMalformedResponse).
				Build()

	// ErrRateLimited is returned when the local request budget is exhausted.
	ErrRateLimited = errors.Newf("llm request rate limited").
			Component(ComponentLLM).
			Category(errors.CategoryThrottled).
			Build()
)
