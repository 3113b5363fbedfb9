package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// DatastoreMetrics contains the metrics of database operations.
type DatastoreMetrics struct {
	dbOperationsTotal   *prometheus.CounterVec
	dbOperationDuration *prometheus.HistogramVec
	dbOperationErrors   *prometheus.CounterVec
	retentionDeleted    *prometheus.CounterVec
	retentionRunsTotal  *prometheus.CounterVec
}

// NewDatastoreMetrics creates and registers the datastore metrics.
func NewDatastoreMetrics(registry *prometheus.Registry) (*DatastoreMetrics, error) {
	m := &DatastoreMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register datastore metrics: %w", err)
	}
	return m, nil
}

func (m *DatastoreMetrics) initMetrics() {
	m.dbOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "datastore_operations_total",
		Help: "Total number of database operations",
	}, []string{"operation", "table", "status"}) // operation: insert, query, delete

	m.dbOperationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "datastore_operation_duration_seconds",
		Help:    "Time taken for database operations",
		Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12), // 1ms to ~4s
	}, []string{"operation", "table"})

	m.dbOperationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "datastore_operation_errors_total",
		Help: "Total number of database operation errors",
	}, []string{"operation", "table", "error_type"})

	m.retentionDeleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "datastore_retention_deleted_rows_total",
		Help: "Total number of rows deleted by the retention job",
	}, []string{"table"})

	m.retentionRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "datastore_retention_runs_total",
		Help: "Total number of retention job runs",
	}, []string{"status"})
}

func (m *DatastoreMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.dbOperationsTotal, m.dbOperationDuration, m.dbOperationErrors, m.retentionDeleted, m.retentionRunsTotal}
}

// Describe implements the prometheus.Collector interface.
func (m *DatastoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements the prometheus.Collector interface.
func (m *DatastoreMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

// RecordRetentionRun records one retention job run and the rows it deleted per table.
func (m *DatastoreMetrics) RecordRetentionRun(status string, deleted map[string]int64) {
	m.retentionRunsTotal.WithLabelValues(status).Inc()
	for table, n := range deleted {
		m.retentionDeleted.WithLabelValues(table).Add(float64(n))
	}
}

// parseTableFromOperation splits "insert_transcriptions" into ("insert", "transcriptions").
func parseTableFromOperation(operation string) (op, table string) {
	op, table, found := strings.Cut(operation, "_")
	if !found {
		return operation, "unknown"
	}
	return op, table
}

// RecordOperation implements Recorder. The operation is "<op>_<table>".
func (m *DatastoreMetrics) RecordOperation(operation, status string) {
	op, table := parseTableFromOperation(operation)
	m.dbOperationsTotal.WithLabelValues(op, table, status).Inc()
}

// RecordDuration implements Recorder.
func (m *DatastoreMetrics) RecordDuration(operation string, seconds float64) {
	op, table := parseTableFromOperation(operation)
	m.dbOperationDuration.WithLabelValues(op, table).Observe(seconds)
}

// RecordError implements Recorder.
func (m *DatastoreMetrics) RecordError(operation, errorType string) {
	op, table := parseTableFromOperation(operation)
	m.dbOperationErrors.WithLabelValues(op, table, errorType).Inc()
}
