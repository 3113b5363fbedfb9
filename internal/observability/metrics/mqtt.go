package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MQTTMetrics tracks the broker connection and published result messages.
type MQTTMetrics struct {
	connected        prometheus.Gauge
	connectedSince   prometheus.Gauge
	publishes        *prometheus.CounterVec
	connectionErrors prometheus.Counter
	reconnects       prometheus.Counter
	payloadBytes     prometheus.Histogram
	publishDuration  prometheus.Histogram
}

// NewMQTTMetrics creates and registers the MQTT metrics.
func NewMQTTMetrics(registry *prometheus.Registry) (*MQTTMetrics, error) {
	m := &MQTTMetrics{
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "echolens_mqtt_connected",
			Help: "1 while connected to the MQTT broker",
		}),
		connectedSince: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "echolens_mqtt_connected_since_seconds",
			Help: "Unix time of the last successful broker connection",
		}),
		publishes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "echolens_mqtt_publishes_total",
			Help: "MQTT publishes by topic suffix and outcome",
		}, []string{"topic", "status"}),
		connectionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "echolens_mqtt_connection_errors_total",
			Help: "Failed or lost broker connections",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "echolens_mqtt_reconnects_total",
			Help: "Broker reconnection attempts",
		}),
		payloadBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "echolens_mqtt_payload_bytes",
			Help:    "Size of published payloads",
			Buckets: prometheus.ExponentialBuckets(BucketStart64B, BucketFactor2, BucketCount10),
		}),
		publishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "echolens_mqtt_publish_duration_seconds",
			Help:    "Time to publish one message",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount10),
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register MQTT metrics: %w", err)
	}
	return m, nil
}

// SetConnected records the connection state.
func (m *MQTTMetrics) SetConnected(connected bool) {
	if !connected {
		m.connected.Set(0)
		return
	}
	m.connected.Set(1)
	m.connectedSince.SetToCurrentTime()
}

// RecordPublish records one publish attempt. Size and duration are only
// observed for successful publishes.
func (m *MQTTMetrics) RecordPublish(topic, status string, sizeBytes int, d time.Duration) {
	m.publishes.WithLabelValues(topic, status).Inc()
	if status == StatusSuccess {
		m.payloadBytes.Observe(float64(sizeBytes))
		m.publishDuration.Observe(d.Seconds())
	}
}

// RecordConnectionError counts a failed or lost connection.
func (m *MQTTMetrics) RecordConnectionError() { m.connectionErrors.Inc() }

// RecordReconnect counts a reconnection attempt.
func (m *MQTTMetrics) RecordReconnect() { m.reconnects.Inc() }

// Describe implements prometheus.Collector.
func (m *MQTTMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.connected.Desc()
	ch <- m.connectedSince.Desc()
	m.publishes.Describe(ch)
	ch <- m.connectionErrors.Desc()
	ch <- m.reconnects.Desc()
	ch <- m.payloadBytes.Desc()
	ch <- m.publishDuration.Desc()
}

// Collect implements prometheus.Collector.
func (m *MQTTMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.connected
	ch <- m.connectedSince
	m.publishes.Collect(ch)
	ch <- m.connectionErrors
	ch <- m.reconnects
	ch <- m.payloadBytes
	ch <- m.publishDuration
}
