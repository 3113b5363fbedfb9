// Package mqtt publishes sound alerts, transcriptions and robot commands to an MQTT broker.
package mqtt

import (
	"context"
	"strings"
	"time"

	"github.com/echolens-ai/echolens/internal/conf"
)

// Client defines the interface for MQTT client operations.
type Client interface {
	// Connect attempts to connect to the MQTT broker. A failed attempt
	// schedules reconnection in the background until Disconnect.
	Connect(ctx context.Context) error

	// Publish sends a message to the specified topic on the MQTT broker.
	Publish(ctx context.Context, topic string, payload string) error

	// IsConnected returns true if the client is currently connected to the MQTT broker.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker and stops reconnection.
	Disconnect()
}

// Metrics is the subset of the MQTT metrics the client records.
type Metrics interface {
	SetConnected(connected bool)
	RecordPublish(topic, status string, sizeBytes int, d time.Duration)
	RecordConnectionError()
	RecordReconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	Topic             string // base topic
	Retain            bool   // true to retain messages at the broker
	ReconnectCooldown time.Duration
	MaxReconnectDelay time.Duration
	// Connection timeouts
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		ClientID:          "echolens",
		Topic:             "echolens",
		ReconnectCooldown: 5 * time.Second,
		MaxReconnectDelay: 5 * time.Minute,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// ConfigFromSettings builds a client configuration from the MQTT settings.
// The node name is used as client id when none is configured.
func ConfigFromSettings(settings *conf.MQTTSettings, nodeName string) Config {
	cfg := DefaultConfig()
	cfg.Broker = settings.Broker
	cfg.Username = settings.Username
	cfg.Password = settings.Password
	cfg.Retain = settings.Retain
	if settings.Topic != "" {
		cfg.Topic = strings.TrimSuffix(settings.Topic, "/")
	}
	switch {
	case settings.ClientID != "":
		cfg.ClientID = settings.ClientID
	case nodeName != "":
		cfg.ClientID = nodeName
	}
	return cfg
}

// Topic joins the base topic and a subtopic.
func Topic(base, sub string) string {
	return strings.TrimSuffix(base, "/") + "/" + sub
}

// Subtopics of the base topic.
const (
	SubtopicSounds         = "sounds"
	SubtopicTranscriptions = "transcriptions"
	SubtopicRobot          = "robot"
)
