package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadInTempDir loads settings from an isolated config directory.
func loadInTempDir(t *testing.T) (*Settings, string) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	t.Setenv("ECHOLENS_CONFIG_DIR", dir)

	settings, err := Load()
	require.NoError(t, err)
	return settings, dir
}

func TestLoadCreatesDefaultConfig(t *testing.T) {
	settings, dir := loadInTempDir(t)

	assert.FileExists(t, filepath.Join(dir, "config.yaml"))

	assert.Equal(t, ModeDemo, settings.Audio.Mode)
	assert.Equal(t, 16000, settings.Audio.SampleRate)
	assert.Equal(t, 2, settings.Audio.Channels)
	assert.Equal(t, time.Second, settings.Audio.FrameDuration)
	assert.Equal(t, 2*time.Second, settings.Audio.ModeCooldown)
	assert.Equal(t, 3*time.Second, settings.Audio.DrainGrace)
	assert.InDelta(t, 0.3, settings.Audio.AlertThreshold, 1e-9)
	assert.Equal(t, 20, settings.Audio.LevelHistory)
	assert.Equal(t, 100, settings.Audio.SinkCapacity)
	assert.Equal(t, 50, settings.Audio.SinkRetain)

	assert.True(t, settings.Preferences.TranscriptionEnabled)
	assert.Equal(t, 70, settings.Preferences.NotificationVolume)
	assert.Equal(t, []string{"doorbell", "alarm", "phone", "name_called"}, settings.Preferences.ImportantSounds)

	assert.Equal(t, "@daily", settings.Output.Retention.Schedule)
	assert.Equal(t, "30d", settings.Output.Retention.MaxAge)
	assert.Same(t, settings, GetSettings())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("ECHOLENS_AUDIO_MODE", "live")
	t.Setenv("ECHOLENS_GEMINI_APIKEY", "")
	t.Setenv("GEMINI_API_KEY", "gemini-test-key")
	t.Setenv("ECHOLENS_WEBSERVER_PORT", "8088")

	settings, _ := loadInTempDir(t)

	assert.Equal(t, ModeLive, settings.Audio.Mode)
	assert.Equal(t, "gemini-test-key", settings.Gemini.APIKey)
	assert.Equal(t, "8088", settings.WebServer.Port)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	t.Setenv("ECHOLENS_CONFIG_DIR", dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("audio:\n  mode: karaoke\n"), 0o600))

	_, err := Load()
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Error(), "karaoke")
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	settings, dir := loadInTempDir(t)

	settings.Audio.Mode = ModeLive
	settings.Preferences.NotificationVolume = 35
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, SaveYAMLConfig(path, settings))

	viper.Reset()
	reloaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ModeLive, reloaded.Audio.Mode)
	assert.Equal(t, 35, reloaded.Preferences.NotificationVolume)
	assert.Equal(t, settings.Audio.FrameDuration, reloaded.Audio.FrameDuration)

	// no temp files left behind
	matches, err := filepath.Glob(filepath.Join(dir, "config-*.yaml"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestLoggingConfig(t *testing.T) {
	t.Parallel()

	s := &Settings{}
	s.Main.Log.Level = "warn"
	s.Main.Log.File = LogFileConfig{Enabled: true, Path: "x.log"}

	cfg := s.LoggingConfig()
	assert.Equal(t, "warn", cfg.DefaultLevel)
	require.NotNil(t, cfg.FileOutput)
	assert.Equal(t, "x.log", cfg.FileOutput.Path)

	s.Debug = true
	s.Main.Log.File.Enabled = false
	cfg = s.LoggingConfig()
	assert.Equal(t, "debug", cfg.DefaultLevel)
	assert.Nil(t, cfg.FileOutput)
}

func TestParseRetentionPeriod(t *testing.T) {
	t.Parallel()

	day := 24 * time.Hour
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"24h", 24 * time.Hour, false},
		{"30d", 30 * day, false},
		{"2w", 14 * day, false},
		{"1m", 30 * day, false},
		{"1y", 365 * day, false},
		{"48", 48 * time.Hour, false},
		{"", 0, true},
		{"5x", 0, true},
		{"d", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseRetentionPeriod(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
