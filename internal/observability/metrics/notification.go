package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics contains the metrics of push notification delivery.
type NotificationMetrics struct {
	DeliveriesTotal  *prometheus.CounterVec   // deliveries by provider and status
	DeliveryDuration *prometheus.HistogramVec // latency by provider
	DeliveryErrors   *prometheus.CounterVec   // errors by provider and error category
	SuppressedTotal  *prometheus.CounterVec   // alerts not sent, by reason
	LastSuccessTime  *prometheus.GaugeVec     // timestamp of the last successful delivery
}

// NewNotificationMetrics creates and registers the notification metrics.
func NewNotificationMetrics(registry *prometheus.Registry) (*NotificationMetrics, error) {
	m := &NotificationMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

func (m *NotificationMetrics) initMetrics() {
	m.DeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_deliveries_total",
		Help: "Total number of notification deliveries by provider and status",
	}, []string{"provider", "status"})

	m.DeliveryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notification_delivery_duration_seconds",
		Help:    "Time taken to deliver a notification",
		Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount10),
	}, []string{"provider"})

	m.DeliveryErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_delivery_errors_total",
		Help: "Total number of notification delivery errors",
	}, []string{"provider", "error_category"})

	m.SuppressedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_suppressed_total",
		Help: "Total number of alerts not notified",
	}, []string{"reason"}) // reason: priority, cooldown

	m.LastSuccessTime = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "notification_last_success_time_seconds",
		Help: "Timestamp of the last successful delivery",
	}, []string{"provider"})
}

func (m *NotificationMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{m.DeliveriesTotal, m.DeliveryDuration, m.DeliveryErrors, m.SuppressedTotal, m.LastSuccessTime}
}

// RecordDelivery records the outcome and latency of one delivery.
func (m *NotificationMetrics) RecordDelivery(provider, status string, duration time.Duration) {
	m.DeliveriesTotal.WithLabelValues(provider, status).Inc()
	m.DeliveryDuration.WithLabelValues(provider).Observe(duration.Seconds())
	if status == StatusSuccess {
		m.LastSuccessTime.WithLabelValues(provider).SetToCurrentTime()
	}
}

// RecordDeliveryError counts a failed delivery.
func (m *NotificationMetrics) RecordDeliveryError(provider, errorCategory string) {
	m.DeliveryErrors.WithLabelValues(provider, errorCategory).Inc()
}

// RecordSuppressed counts an alert that was not sent.
func (m *NotificationMetrics) RecordSuppressed(reason string) {
	m.SuppressedTotal.WithLabelValues(reason).Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

// Describe implements the prometheus.Collector interface.
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}
