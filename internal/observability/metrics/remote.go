package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// RemoteMetrics tracks calls to remote services (speech recognition and the
// generative AI). It implements Recorder for one service.
type RemoteMetrics struct {
	service string

	operationsTotal *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
}

// remoteVecs are shared by all services so each can register a labelled view.
type remoteVecs struct {
	operationsTotal *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
}

func newRemoteVecs(registry *prometheus.Registry) (*remoteVecs, error) {
	v := &remoteVecs{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "echolens_remote_operations_total",
			Help: "Total number of remote service calls",
		}, []string{"service", "operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "echolens_remote_operation_duration_seconds",
			Help:    "Duration of remote service calls",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12), // 10ms to ~20s
		}, []string{"service", "operation"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "echolens_remote_errors_total",
			Help: "Total number of remote service errors by type",
		}, []string{"service", "operation", "error_type"}),
	}
	for _, c := range []prometheus.Collector{v.operationsTotal, v.duration, v.errorsTotal} {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register remote metrics: %w", err)
		}
	}
	return v, nil
}

func (v *remoteVecs) forService(service string) *RemoteMetrics {
	return &RemoteMetrics{
		service:         service,
		operationsTotal: v.operationsTotal,
		duration:        v.duration,
		errorsTotal:     v.errorsTotal,
	}
}

// RecordOperation implements Recorder.
func (m *RemoteMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(m.service, operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *RemoteMetrics) RecordDuration(operation string, seconds float64) {
	m.duration.WithLabelValues(m.service, operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *RemoteMetrics) RecordError(operation, errorType string) {
	m.errorsTotal.WithLabelValues(m.service, operation, errorType).Inc()
}

// RemoteServices bundles the per-service recorders.
type RemoteServices struct {
	Speech     *RemoteMetrics
	LLM        *RemoteMetrics
	Classifier *RemoteMetrics
}

// NewRemoteServices registers the remote call metrics.
func NewRemoteServices(registry *prometheus.Registry) (*RemoteServices, error) {
	v, err := newRemoteVecs(registry)
	if err != nil {
		return nil, err
	}
	return &RemoteServices{
		Speech:     v.forService("speech"),
		LLM:        v.forService("llm"),
		Classifier: v.forService("classifier"),
	}, nil
}
