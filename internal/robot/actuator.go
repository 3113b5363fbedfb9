package robot

import (
	"context"
	"encoding/json"
	"time"

	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/logger"
)

// Command is one reaction sent to an actuator.
type Command struct {
	Reaction
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}

// Actuator performs reactions on hardware or a simulation.
type Actuator interface {
	Name() string
	Perform(ctx context.Context, cmd Command) error
}

// LogActuator simulates the hardware by logging each reaction.
type LogActuator struct {
	logger logger.Logger
}

// NewLogActuator creates the simulated actuator.
func NewLogActuator() *LogActuator {
	return &LogActuator{logger: GetLogger().With(logger.String("actuator", "log"))}
}

// Name implements Actuator.
func (a *LogActuator) Name() string { return "log" }

// Perform implements Actuator.
func (a *LogActuator) Perform(_ context.Context, cmd Command) error {
	a.logger.Info("Robot reaction (simulated)",
		logger.String("emotion", cmd.Emotion),
		logger.Any("led_color", cmd.LEDColor),
		logger.String("movement", string(cmd.Movement)),
		logger.String("sound", cmd.Sound),
		logger.Float64("confidence", cmd.Confidence))
	return nil
}

// Publisher is the MQTT publishing capability used by MQTTActuator.
type Publisher interface {
	Publish(ctx context.Context, topic, payload string) error
}

// MQTTActuator publishes each reaction as a JSON command for the robot firmware.
type MQTTActuator struct {
	publisher Publisher
	topic     string
}

// NewMQTTActuator creates an actuator publishing to topic.
func NewMQTTActuator(publisher Publisher, topic string) *MQTTActuator {
	return &MQTTActuator{publisher: publisher, topic: topic}
}

// Name implements Actuator.
func (a *MQTTActuator) Name() string { return "mqtt" }

// Perform implements Actuator.
func (a *MQTTActuator) Perform(ctx context.Context, cmd Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return errors.New(err).
			Component(ComponentRobot).
			Category(errors.CategoryValidation).
			Build()
	}
	if err := a.publisher.Publish(ctx, a.topic, string(payload)); err != nil {
		return errors.New(err).
			Component(ComponentRobot).
			Category(errors.CategoryMQTTPublish).
			Context("topic", a.topic).
			Build()
	}
	return nil
}
