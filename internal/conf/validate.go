// conf/validate.go

package conf

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func() error{
		func() error { return validateLogSettings(&settings.Main.Log) },
		func() error { return validateAudioSettings(&settings.Audio) },
		func() error { return validateClassifierSettings(&settings.Classifier) },
		func() error { return validateGeminiSettings(&settings.Gemini) },
		func() error { return validatePreferenceDefaults(&settings.Preferences) },
		func() error { return validateOutputSettings(&settings.Output) },
		func() error { return validateMQTTSettings(&settings.MQTT) },
		func() error { return validateNotificationSettings(&settings.Notification) },
		func() error { return validateRobotSettings(&settings.Robot, &settings.MQTT) },
		func() error { return validateWebServerSettings(&settings.WebServer) },
		func() error { return validateSentrySettings(&settings.Sentry) },
	}

	for _, validate := range validators {
		if err := validate(); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateLogSettings(settings *LogConfig) error {
	if settings.Level != "" {
		if err := validateEnvLogLevel(settings.Level); err != nil {
			return fmt.Errorf("log level: %w", err)
		}
	}
	if settings.Timezone != "" && settings.Timezone != "Local" {
		if _, err := time.LoadLocation(settings.Timezone); err != nil {
			return fmt.Errorf("log timezone %q: %w", settings.Timezone, err)
		}
	}
	if settings.File.Enabled && settings.File.Path == "" {
		return errors.New("log file path is required when file logging is enabled")
	}
	return nil
}

// validateAudioSettings validates the capture and pipeline settings
func validateAudioSettings(settings *AudioSettings) error {
	var errs []string

	if settings.Mode != ModeLive && settings.Mode != ModeDemo {
		errs = append(errs, fmt.Sprintf("audio mode must be %q or %q, got %q", ModeLive, ModeDemo, settings.Mode))
	}
	if settings.SampleRate <= 0 {
		errs = append(errs, "audio sample rate must be positive")
	}
	if settings.Channels != 1 && settings.Channels != 2 {
		errs = append(errs, "audio channels must be 1 or 2")
	}
	if settings.FrameDuration <= 0 {
		errs = append(errs, "audio frame duration must be positive")
	}
	if settings.FrameTimeout <= 0 {
		errs = append(errs, "audio frame timeout must be positive")
	}
	if settings.QueueSeconds < 1 {
		errs = append(errs, "audio queue must hold at least 1 second")
	}
	if settings.SpeechThreshold < 0 || settings.SpeechThreshold > 100 {
		errs = append(errs, "audio speech threshold must be between 0 and 100")
	}
	if settings.AlertThreshold < 0 || settings.AlertThreshold > 1 {
		errs = append(errs, "audio alert threshold must be between 0 and 1")
	}
	if settings.LevelHistory < 1 {
		errs = append(errs, "audio level history must be at least 1")
	}
	if settings.SinkRetain < 1 || settings.SinkRetain > settings.SinkCapacity {
		errs = append(errs, "audio sink retain must be between 1 and sink capacity")
	}
	if settings.ModeCooldown < 0 || settings.DrainGrace < 0 {
		errs = append(errs, "audio mode cooldown and drain grace must not be negative")
	}
	if settings.DemoInterval <= 0 {
		errs = append(errs, "audio demo interval must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("audio settings errors: %v", errs)
	}
	return nil
}

func validateClassifierSettings(settings *ClassifierSettings) error {
	if settings.Threads < 0 {
		return errors.New("classifier threads must be at least 0")
	}
	if settings.Threshold < 0 || settings.Threshold > 1 {
		return errors.New("classifier threshold must be between 0 and 1")
	}
	if settings.Enabled && settings.ModelPath == "" {
		return errors.New("classifier model path is required when the classifier is enabled")
	}
	if settings.TopK < 1 {
		settings.TopK = 5
	}
	return nil
}

func validateGeminiSettings(settings *GeminiSettings) error {
	if !settings.Enabled {
		return nil
	}
	if _, err := url.ParseRequestURI(settings.BaseURL); err != nil {
		return fmt.Errorf("gemini base URL: %w", err)
	}
	if settings.Model == "" {
		return errors.New("gemini model must not be empty")
	}
	if settings.RateLimit <= 0 {
		return errors.New("gemini rate limit must be positive")
	}
	return nil
}

func validatePreferenceDefaults(settings *PreferenceDefaults) error {
	if settings.NotificationVolume < 0 || settings.NotificationVolume > 100 {
		return fmt.Errorf("notification volume must be between 0 and 100, got %d", settings.NotificationVolume)
	}
	return nil
}

func validateOutputSettings(settings *OutputSettings) error {
	if settings.SQLite.Enabled && settings.MySQL.Enabled {
		return errors.New("only one of sqlite and mysql output can be enabled")
	}
	if settings.SQLite.Enabled && settings.SQLite.Path == "" {
		return errors.New("sqlite path is required when sqlite output is enabled")
	}
	if settings.MySQL.Enabled {
		if settings.MySQL.Host == "" || settings.MySQL.Database == "" {
			return errors.New("mysql host and database are required when mysql output is enabled")
		}
		if _, err := strconv.Atoi(settings.MySQL.Port); err != nil {
			return fmt.Errorf("mysql port %q is not a number", settings.MySQL.Port)
		}
	}
	if settings.Retention.Enabled {
		if _, err := cron.ParseStandard(settings.Retention.Schedule); err != nil {
			return fmt.Errorf("retention schedule %q: %w", settings.Retention.Schedule, err)
		}
		if _, err := ParseRetentionPeriod(settings.Retention.MaxAge); err != nil {
			return fmt.Errorf("retention max age: %w", err)
		}
	}
	return nil
}

// validateMQTTSettings validates the MQTT settings
func validateMQTTSettings(settings *MQTTSettings) error {
	if !settings.Enabled {
		return nil
	}
	if settings.Broker == "" {
		return errors.New("MQTT broker URL is required when MQTT is enabled")
	}
	if err := validateEnvURL(settings.Broker); err != nil {
		return fmt.Errorf("MQTT broker: %w", err)
	}
	if settings.Topic == "" {
		return errors.New("MQTT topic is required when MQTT is enabled")
	}
	return nil
}

func validateNotificationSettings(settings *NotificationSettings) error {
	if settings.Enabled && len(settings.URLs) == 0 {
		return errors.New("at least one notification URL is required when notifications are enabled")
	}
	if settings.Cooldown < 0 {
		return errors.New("notification cooldown must not be negative")
	}
	return nil
}

func validateRobotSettings(settings *RobotSettings, mqtt *MQTTSettings) error {
	switch settings.Actuator {
	case "", "log":
		return nil
	case "mqtt":
		if settings.Enabled && !mqtt.Enabled {
			return errors.New("robot mqtt actuator requires MQTT to be enabled")
		}
		return nil
	default:
		return fmt.Errorf("robot actuator must be log or mqtt, got %q", settings.Actuator)
	}
}

// validateWebServerSettings validates the WebServer-specific settings
func validateWebServerSettings(settings *WebServerSettings) error {
	if !settings.Enabled {
		return nil
	}
	if settings.Port == "" {
		return errors.New("WebServer port is required when enabled")
	}
	return validateEnvPort(settings.Port)
}

func validateSentrySettings(settings *SentrySettings) error {
	if !settings.Enabled {
		return nil
	}
	if settings.DSN == "" {
		return errors.New("sentry DSN is required when sentry is enabled")
	}
	if settings.SampleRate < 0 || settings.SampleRate > 1 {
		return errors.New("sentry sample rate must be between 0 and 1")
	}
	return nil
}
