package robot

import "github.com/echolens-ai/echolens/internal/errors"

// ComponentRobot is the component identifier for robot errors.
const ComponentRobot = "robot"

// ErrClosed is returned when a reaction is requested after Close.
var ErrClosed = errors.Newf("robot controller is closed").
	Component(ComponentRobot).
	Category(errors.CategoryState).
	Build()
