package mqtt

import "github.com/echolens-ai/echolens/internal/errors"

// ComponentMQTT is the component identifier for MQTT errors.
const ComponentMQTT = "mqtt"

var (
	// ErrNotConnected is returned when publishing without a broker connection.
	ErrNotConnected = errors.Newf("not connected to MQTT broker").
			Component(ComponentMQTT).
			Category(errors.CategoryMQTTConnection).
			Build()

	// ErrQueueFull is returned when the publisher cannot accept more messages.
	ErrQueueFull = errors.Newf("MQTT publish queue is full").
			Component(ComponentMQTT).
			Category(errors.CategoryMQTTPublish).
			Build()
)
