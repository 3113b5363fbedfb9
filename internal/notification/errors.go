package notification

import "github.com/echolens-ai/echolens/internal/errors"

// ComponentNotification is the component identifier for notification errors.
const ComponentNotification = "notification"

var (
	// ErrCircuitBreakerOpen is returned while a failing provider is skipped.
	ErrCircuitBreakerOpen = errors.Newf("circuit breaker is open").
				Component(ComponentNotification).
				Category(errors.CategoryThrottled).
				Build()

	// ErrTooManyRequests is returned when a half-open breaker already has a probe in flight.
	ErrTooManyRequests = errors.Newf("circuit breaker is half-open, too many requests").
				Component(ComponentNotification).
				Category(errors.CategoryThrottled).
				Build()

	// ErrNoProviders is returned when the notifier is created without providers.
	ErrNoProviders = errors.Newf("no notification providers configured").
			Component(ComponentNotification).
			Category(errors.CategoryConfiguration).
			Build()
)

func deliveryError(err error, provider string) error {
	return errors.New(err).
		Component(ComponentNotification).
		Category(errors.CategoryNotification).
		Context("provider", provider).
		Build()
}
