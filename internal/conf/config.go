// config.go: This file contains the configuration for the EchoLens application. It defines the settings struct and functions to load and save the settings.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/echolens-ai/echolens/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Pipeline modes accepted by audio.mode.
const (
	ModeLive = "live"
	ModeDemo = "demo"
)

// LogConfig defines the configuration for the central logger.
type LogConfig struct {
	Level        string            // default level: trace, debug, info, warn, error
	Timezone     string            // "Local", "UTC" or an IANA zone name
	File         LogFileConfig     // optional JSON log file
	ModuleLevels map[string]string // per-module level overrides
}

// LogFileConfig configures the JSON log file.
type LogFileConfig struct {
	Enabled bool
	Path    string
	Level   string
}

// AudioSettings contains settings for capture and the processing loop.
type AudioSettings struct {
	Mode            string        // initial pipeline mode, live or demo
	AutoStart       bool          // start the pipeline when the server starts
	Device          string        // capture device name or id, empty for system default
	SampleRate      int           // capture sample rate in Hz
	Channels        int           // 1 or 2
	FrameDuration   time.Duration // length of one processed frame
	FrameTimeout    time.Duration // bounded wait for the next frame
	QueueSeconds    int           // capacity of the capture queue in seconds of audio
	SpeechThreshold float64       // level (0-100) above which speech recognition is dispatched
	AlertThreshold  float64       // classifier confidence floor for sound alerts
	LevelHistory    int           // number of retained signal levels
	SinkCapacity    int           // sink length that triggers a trim
	SinkRetain      int           // number of newest entries kept by a trim
	ModeCooldown    time.Duration // minimum interval between mode switches
	DrainGrace      time.Duration // grace period for in-flight speech tasks on stop
	DemoInterval    time.Duration // pacing of synthetic demo events
}

// ClassifierSettings configures the sound classification model.
type ClassifierSettings struct {
	Enabled    bool
	ModelPath  string  // path to a TFLite sound classification model
	LabelsPath string  // path to the model label file, one label per line
	Threads    int     // interpreter threads, 0 for automatic
	Threshold  float64 // minimum confidence reported by the classifier
	TopK       int     // maximum number of detections per frame
}

// SpeechSettings configures the remote speech recognizer.
type SpeechSettings struct {
	Enabled  bool
	APIKey   string        // Google Cloud API key
	Endpoint string        // optional endpoint override
	Language string        // BCP-47 language code
	Timeout  time.Duration // per request timeout
}

// GeminiSettings configures the generative AI used for emotion analysis and chat.
type GeminiSettings struct {
	Enabled     bool
	APIKey      string
	BaseURL     string        // OpenAI compatible endpoint
	Model       string        // model name
	Temperature float64       // sampling temperature
	Timeout     time.Duration // per request timeout
	RateLimit   float64       // requests per second
	CacheTTL    time.Duration // emotion result cache lifetime
}

// PreferenceDefaults holds the initial user preferences.
type PreferenceDefaults struct {
	TranscriptionEnabled    bool
	SoundDetectionEnabled   bool
	EmotionDetectionEnabled bool
	DirectionalAudio        bool
	NotificationVolume      int
	DistanceReporting       bool
	ImportantSounds         []string
}

// RetentionSettings configures the cleanup of persisted records.
type RetentionSettings struct {
	Enabled  bool
	Schedule string // cron schedule, e.g. "@daily"
	MaxAge   string // maximum age of records to keep, e.g. "30d"
}

// MQTTSettings contains settings for MQTT publishing.
type MQTTSettings struct {
	Enabled  bool
	Broker   string // MQTT (tcp://host:port)
	Topic    string // base topic
	Username string
	Password string
	ClientID string
	Retain   bool
}

// NotificationSettings configures push notifications for important sounds.
type NotificationSettings struct {
	Enabled  bool
	URLs     []string      // shoutrrr service URLs
	Cooldown time.Duration // minimum interval between notifications for one sound
}

// RobotSettings configures the companion robot reactions.
type RobotSettings struct {
	Enabled  bool
	Actuator string // log or mqtt
}

// WebServerSettings configures the HTTP API.
type WebServerSettings struct {
	Enabled      bool
	Debug        bool
	Port         string
	AllowOrigins []string // CORS origins
}

// MetricsSettings controls the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool // serve /metrics on the web server
}

// SentrySettings configures opt-in error reporting.
type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

// Settings contains all configuration options for EchoLens.
type Settings struct {
	Debug bool // true to enable debug mode

	// Runtime values, not stored in config file
	Version   string `yaml:"-"`
	BuildDate string `yaml:"-"`

	Main struct {
		Name string    // node name, used in notifications and MQTT payloads
		Log  LogConfig // logging configuration
	}

	Audio        AudioSettings
	Classifier   ClassifierSettings
	Speech       SpeechSettings
	Gemini       GeminiSettings
	Preferences  PreferenceDefaults
	Output       OutputSettings
	MQTT         MQTTSettings
	Notification NotificationSettings
	Robot        RobotSettings
	WebServer    WebServerSettings
	Metrics      MetricsSettings
	Sentry       SentrySettings
}

// OutputSettings configures durable storage.
type OutputSettings struct {
	SQLite struct {
		Enabled bool   // true to enable sqlite output
		Path    string // path to sqlite database
	}

	MySQL struct {
		Enabled  bool
		Username string
		Password string
		Database string
		Host     string
		Port     string
	}

	Retention RetentionSettings
}

// LoggingConfig converts the log section into a logger configuration.
func (s *Settings) LoggingConfig() *logger.LoggingConfig {
	level := s.Main.Log.Level
	if s.Debug {
		level = string(logger.LogLevelDebug)
	}
	cfg := &logger.LoggingConfig{
		DefaultLevel: level,
		Timezone:     s.Main.Log.Timezone,
		Console:      &logger.ConsoleOutput{Enabled: true, Level: level},
		ModuleLevels: s.Main.Log.ModuleLevels,
	}
	if s.Main.Log.File.Enabled {
		cfg.FileOutput = &logger.FileOutput{
			Enabled: true,
			Path:    s.Main.Log.File.Path,
			Level:   s.Main.Log.File.Level,
		}
	}
	return cfg
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a new Settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// function defined in defaults.go
	setDefaultConfig()

	if err := configureEnvironmentVariables(); err != nil {
		// invalid environment values are reported but never block startup
		GetLogger().Warn("Environment variable validation failed", logger.Error(err))
	}

	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded default config to the first config path and reads it.
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")

	defaultConfig, err := getDefaultConfig()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(configPath, defaultConfig, 0o644); err != nil { //nolint:gosec // config is not secret until the user edits it
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("Created default config file", logger.String("path", configPath))
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded config: %w", err)
	}
	return data, nil
}

// viperConfigFileUsed returns the config file viper loaded, if any.
func viperConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if GetSettings() == nil {
			if _, err := Load(); err != nil {
				GetLogger().Error("Error loading settings", logger.Error(err))
				os.Exit(1)
			}
		}
	})
	return GetSettings()
}

// SaveSettings saves the current settings to the configuration file.
func SaveSettings() error {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()

	if settingsInstance == nil {
		return fmt.Errorf("settings not loaded")
	}

	settingsCopy := *settingsInstance
	settingsCopy.Preferences.ImportantSounds = append([]string(nil), settingsInstance.Preferences.ImportantSounds...)

	configPath, err := FindConfigFile()
	if err != nil {
		return fmt.Errorf("error finding config file: %w", err)
	}

	if err := SaveYAMLConfig(configPath, &settingsCopy); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}

	GetLogger().Info("Settings saved", logger.String("path", configPath))
	return nil
}

// SaveYAMLConfig updates the YAML configuration file with new settings.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// write through a temporary file so readers never see a partial config
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName)

	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		if err := moveFile(tempFileName, configPath); err != nil {
			return fmt.Errorf("error copying config file: %w", err)
		}
	}

	return nil
}
