package chat

import "github.com/echolens-ai/echolens/internal/errors"

// ComponentChat is the component identifier for chat errors.
const ComponentChat = "chat"

// ErrEmptyMessage is returned when a chat request carries no message.
var ErrEmptyMessage = errors.Newf("no message provided").
	Component(ComponentChat).
	Category(errors.CategoryValidation).
	Build()
