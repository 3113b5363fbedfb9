package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// histogramCount returns the sample count of a registered histogram.
func histogramCount(t *testing.T, reg *prometheus.Registry, name string) uint64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			require.Len(t, f.GetMetric(), 1)
			return f.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

func TestMQTTMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m, err := NewMQTTMetrics(reg)
	require.NoError(t, err)

	m.SetConnected(true)
	assert.InDelta(t, 1, testutil.ToFloat64(m.connected), 0)
	assert.Positive(t, testutil.ToFloat64(m.connectedSince))

	m.RecordPublish("sounds", StatusSuccess, 120, 5*time.Millisecond)
	m.RecordPublish("sounds", StatusError, 120, time.Second)
	m.RecordReconnect()
	m.RecordConnectionError()
	m.SetConnected(false)

	assert.InDelta(t, 1, testutil.ToFloat64(m.publishes.WithLabelValues("sounds", StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.publishes.WithLabelValues("sounds", StatusError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.reconnects), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.connectionErrors), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.connected), 0)

	// failed publishes are counted but not observed
	assert.Equal(t, uint64(1), histogramCount(t, reg, "echolens_mqtt_payload_bytes"))
	assert.Equal(t, uint64(1), histogramCount(t, reg, "echolens_mqtt_publish_duration_seconds"))
}

func TestMQTTMetrics_DuplicateRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewMQTTMetrics(reg)
	require.NoError(t, err)
	_, err = NewMQTTMetrics(reg)
	assert.Error(t, err)
}

func TestParseTableFromOperation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, op, table string
	}{
		{"insert_transcriptions", "insert", "transcriptions"},
		{"delete_sound_alerts", "delete", "sound_alerts"},
		{"migrate", "migrate", "unknown"},
	}
	for _, tt := range tests {
		op, table := parseTableFromOperation(tt.in)
		assert.Equal(t, tt.op, op, tt.in)
		assert.Equal(t, tt.table, table, tt.in)
	}
}

func TestDatastoreMetrics_RetentionRun(t *testing.T) {
	t.Parallel()

	m, err := NewDatastoreMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordRetentionRun(StatusSuccess, map[string]int64{"transcriptions": 3, "sound_alerts": 2})
	m.RecordRetentionRun(StatusSuccess, map[string]int64{"transcriptions": 1})

	assert.InDelta(t, 2, testutil.ToFloat64(m.retentionRunsTotal.WithLabelValues(StatusSuccess)), 0)
	assert.InDelta(t, 4, testutil.ToFloat64(m.retentionDeleted.WithLabelValues("transcriptions")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.retentionDeleted.WithLabelValues("sound_alerts")), 0)
}
