// Package notification sends push notifications for high-priority sound alerts.
package notification

import (
	"context"
	"time"

	"github.com/echolens-ai/echolens/internal/conf"
	"github.com/echolens-ai/echolens/internal/detection"
)

// Notification is one message delivered to the push providers.
type Notification struct {
	Title     string
	Message   string
	Sound     string
	Priority  detection.Priority
	Direction string
	Timestamp time.Time
}

// Provider defines a push delivery backend. Implementations must be safe
// for concurrent use.
type Provider interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Metrics records notification outcomes.
type Metrics interface {
	RecordDelivery(provider, status string, duration time.Duration)
	RecordDeliveryError(provider, errorCategory string)
	RecordSuppressed(reason string)
}

// Config configures a Notifier.
type Config struct {
	Node      string        // node name shown in the title
	Cooldown  time.Duration // minimum interval between notifications for one sound
	Timeout   time.Duration // per provider send timeout
	QueueSize int
}

// DefaultConfig returns the notifier defaults.
func DefaultConfig() Config {
	return Config{
		Node:      "EchoLens",
		Cooldown:  time.Minute,
		Timeout:   10 * time.Second,
		QueueSize: 32,
	}
}

// ConfigFromSettings builds a notifier configuration.
func ConfigFromSettings(settings *conf.NotificationSettings, node string) Config {
	cfg := DefaultConfig()
	cfg.Cooldown = settings.Cooldown
	if node != "" {
		cfg.Node = node
	}
	return cfg
}

// Suppression reasons recorded in metrics.
const (
	reasonMuted     = "muted"
	reasonCooldown  = "cooldown"
	reasonQueueFull = "queue_full"
)
