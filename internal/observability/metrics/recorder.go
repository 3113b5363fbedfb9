// Package metrics provides custom Prometheus metrics for the EchoLens components.
package metrics

// Recorder defines a minimal interface for recording metrics.
// Components depend on it rather than on concrete metric types.
type Recorder interface {
	// RecordOperation records an operation with its outcome, e.g. ("recognize", "success").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its type, e.g. ("complete", "throttled").
	RecordError(operation, errorType string)
}

// NopRecorder discards all measurements.
type NopRecorder struct{}

func (NopRecorder) RecordOperation(string, string) {}
func (NopRecorder) RecordDuration(string, float64) {}
func (NopRecorder) RecordError(string, string)     {}
