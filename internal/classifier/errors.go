package classifier

import "github.com/echolens-ai/echolens/internal/errors"

// ComponentClassifier is the component identifier for classifier errors.
const ComponentClassifier = "classifier"

var (
	// ErrModelLoad is returned when the model file cannot be loaded.
	ErrModelLoad = errors.Newf("sound model could not be loaded").
			Component(ComponentClassifier).
			Category(errors.CategoryModelLoad).
			Build()

	// ErrLabels is returned when the label file is missing or does not match the model.
	ErrLabels = errors.Newf("sound model labels could not be loaded").
			Component(ComponentClassifier).
			Category(errors.CategoryLabelLoad).
			Build()
)
