package mqtt

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echolens-ai/echolens/internal/conf"
	"github.com/echolens-ai/echolens/internal/errors"
)

func isMosquittoTestServerAvailable() bool {
	conn, err := net.DialTimeout("tcp", "test.mosquitto.org:1883", 5*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func TestConfigFromSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		settings conf.MQTTSettings
		node     string
		wantID   string
		wantTop  string
	}{
		{"explicit client id", conf.MQTTSettings{ClientID: "robot-1", Topic: "home/"}, "node", "robot-1", "home"},
		{"node name fallback", conf.MQTTSettings{Topic: "home"}, "kitchen", "kitchen", "home"},
		{"defaults", conf.MQTTSettings{}, "", "echolens", "echolens"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := ConfigFromSettings(&tt.settings, tt.node)
			assert.Equal(t, tt.wantID, cfg.ClientID)
			assert.Equal(t, tt.wantTop, cfg.Topic)
		})
	}
}

func TestTopic(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "echolens/robot", Topic("echolens/", SubtopicRobot))
	assert.Equal(t, "a/b/sounds", Topic("a/b", SubtopicSounds))
}

func TestClient_InvalidBroker(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Broker = "tcp://"
	c := NewClient(cfg, nil)
	defer c.Disconnect()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.Connect(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
	assert.False(t, c.IsConnected())
}

func TestClient_PublishWhileDisconnected(t *testing.T) {
	t.Parallel()

	c := NewClient(DefaultConfig(), nil)
	defer c.Disconnect()

	err := c.Publish(context.Background(), "echolens/test", "payload")
	require.ErrorIs(t, err, ErrNotConnected)
}

func TestClient_ConnectCooldown(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Broker = "tcp://127.0.0.1:1"
	cfg.ConnectTimeout = time.Second
	c := NewClient(cfg, nil)
	defer c.Disconnect()

	_ = c.Connect(context.Background())
	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryMQTTConnection))
	assert.Contains(t, err.Error(), "too recent")
}

func TestClient_PublicBroker(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping broker test in short mode")
	}
	if !isMosquittoTestServerAvailable() {
		t.Skip("Skipping MQTT tests: test.mosquitto.org is not available")
	}

	cfg := DefaultConfig()
	cfg.Broker = "tcp://test.mosquitto.org:1883"
	cfg.ClientID = "echolens-test"
	c := NewClient(cfg, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, c.Connect(ctx))
	assert.True(t, c.IsConnected())
	require.NoError(t, c.Publish(ctx, "echolens/test", "Hello, MQTT!"))

	c.Disconnect()
	assert.False(t, c.IsConnected())
}
