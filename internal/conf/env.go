// env.go - Environment variable configuration and validation for EchoLens
package conf

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Aliases   []string           // Additional variable names, checked after EnvVar
	Validate  func(string) error // Optional validation function
}

// names returns the primary variable followed by its aliases.
func (b envBinding) names() []string {
	return append([]string{b.EnvVar}, b.Aliases...)
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "ECHOLENS_DEBUG", nil, validateEnvBool},
		{"main.log.level", "ECHOLENS_LOG_LEVEL", nil, validateEnvLogLevel},

		// Audio pipeline
		{"audio.mode", "ECHOLENS_AUDIO_MODE", nil, validateEnvMode},
		{"audio.device", "ECHOLENS_AUDIO_DEVICE", nil, nil},
		{"audio.samplerate", "ECHOLENS_AUDIO_SAMPLERATE", nil, validateEnvPositiveInt},
		{"audio.channels", "ECHOLENS_AUDIO_CHANNELS", nil, validateEnvChannels},
		{"audio.speechthreshold", "ECHOLENS_AUDIO_SPEECHTHRESHOLD", nil, validateEnvLevel},
		{"audio.modecooldown", "ECHOLENS_AUDIO_MODECOOLDOWN", nil, validateEnvDuration},

		// Classifier
		{"classifier.modelpath", "ECHOLENS_CLASSIFIER_MODELPATH", nil, nil},
		{"classifier.labelspath", "ECHOLENS_CLASSIFIER_LABELSPATH", nil, nil},
		{"classifier.threads", "ECHOLENS_CLASSIFIER_THREADS", nil, validateEnvThreads},
		{"classifier.threshold", "ECHOLENS_CLASSIFIER_THRESHOLD", nil, validateEnvThreshold},

		// Remote services
		{"speech.apikey", "ECHOLENS_SPEECH_APIKEY", []string{"GOOGLE_API_KEY"}, nil},
		{"speech.language", "ECHOLENS_SPEECH_LANGUAGE", nil, validateEnvLanguage},
		{"gemini.apikey", "ECHOLENS_GEMINI_APIKEY", []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}, nil},
		{"gemini.baseurl", "ECHOLENS_GEMINI_BASEURL", nil, validateEnvURL},
		{"gemini.model", "ECHOLENS_GEMINI_MODEL", nil, nil},

		// Outputs
		{"output.sqlite.path", "ECHOLENS_SQLITE_PATH", nil, nil},
		{"output.mysql.password", "ECHOLENS_MYSQL_PASSWORD", nil, nil},
		{"mqtt.broker", "ECHOLENS_MQTT_BROKER", nil, validateEnvURL},
		{"mqtt.password", "ECHOLENS_MQTT_PASSWORD", nil, nil},
		{"sentry.dsn", "ECHOLENS_SENTRY_DSN", nil, validateEnvURL},
		{"webserver.port", "ECHOLENS_WEBSERVER_PORT", nil, validateEnvPort},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	bindings := getEnvBindings()
	var warnings []string

	for _, binding := range bindings {
		names := binding.names()
		args := append([]string{binding.ConfigKey}, names...)
		if err := viper.BindEnv(args...); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		for _, name := range names {
			// empty but present values are validated too, they would override the config file
			envValue, present := os.LookupEnv(name)
			if !present {
				continue
			}
			if err := binding.Validate(envValue); err != nil {
				warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", name, envValue, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars()
}

// Environment variable validation functions

// validateEnvBool validates boolean environment variables
func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f, TRUE/FALSE, T/F", value)
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("must be one of: trace, debug, info, warn, error")
}

func validateEnvMode(value string) error {
	if value == ModeLive || value == ModeDemo {
		return nil
	}
	return fmt.Errorf("must be one of: %s, %s", ModeLive, ModeDemo)
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

func validateEnvChannels(value string) error {
	if value == "1" || value == "2" {
		return nil
	}
	return fmt.Errorf("channels must be 1 or 2")
}

func validateEnvLevel(value string) error {
	level, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid level: %w", err)
	}
	if level < 0 || level > 100 {
		return fmt.Errorf("level must be between 0 and 100, got %g", level)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("duration must be non-negative, got %s", d)
	}
	return nil
}

func validateEnvThreads(value string) error {
	threads, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid threads: %w", err)
	}
	if threads < 0 {
		return fmt.Errorf("threads must be non-negative, got %d", threads)
	}
	return nil
}

func validateEnvThreshold(value string) error {
	threshold, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid threshold: %w", err)
	}
	if threshold < 0.0 || threshold > 1.0 {
		return fmt.Errorf("threshold must be between 0.0 and 1.0, got %g", threshold)
	}
	return nil
}

// languagePattern matches BCP-47 tags like "en" or "en-US"
var languagePattern = regexp.MustCompile(`^[a-zA-Z]{2,3}(-[a-zA-Z0-9]{2,8})*$`)

func validateEnvLanguage(value string) error {
	if !languagePattern.MatchString(value) {
		return fmt.Errorf("language must match pattern 'xx' or 'xx-XX' (e.g., 'en' or 'en-US'), got: '%s'", value)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("URL must include scheme and host, got: '%s'", value)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}
