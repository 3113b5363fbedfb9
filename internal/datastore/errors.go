package datastore

import (
	"fmt"

	"github.com/echolens-ai/echolens/internal/errors"
)

// ComponentDatastore is the component identifier for datastore errors.
const ComponentDatastore = "datastore"

// ErrNotInitialized is returned when the store is used before Open.
var ErrNotInitialized = errors.Newf("database connection is not initialized").
	Component(ComponentDatastore).
	Category(errors.CategoryState).
	Build()

// dbError wraps a failed database operation.
func dbError(err error, operation, table string) error {
	return errors.New(fmt.Errorf("%s %s: %w", operation, table, err)).
		Component(ComponentDatastore).
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Context("table", table).
		Build()
}
