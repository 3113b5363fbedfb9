package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/echolens-ai/echolens/internal/audio"
	"github.com/echolens-ai/echolens/internal/conf"
	"github.com/echolens-ai/echolens/internal/errors"
)

// Mode selects the frame source.
type Mode string

const (
	ModeLive Mode = conf.ModeLive
	ModeDemo Mode = conf.ModeDemo
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeLive, ModeDemo:
		return m, nil
	}
	return "", errors.New(fmt.Errorf("%w: %q, expected %q or %q", ErrInvalidMode, s, ModeLive, ModeDemo)).
		Component(ComponentPipeline).
		Category(errors.CategoryValidation).
		Build()
}

// Config holds the tunables of the processing loop.
type Config struct {
	Mode            Mode
	FrameTimeout    time.Duration // bounded wait for one frame
	SpeechThreshold float64       // level (0-100) that dispatches speech recognition
	AlertThreshold  float64       // classifier confidence floor for sound alerts
	LevelHistory    int
	SinkCapacity    int
	SinkRetain      int
	ModeCooldown    time.Duration
	DrainGrace      time.Duration

	Live audio.LiveConfig
	Demo audio.DemoConfig
}

// DefaultConfig returns the built-in loop settings.
func DefaultConfig() Config {
	return Config{
		Mode:            ModeDemo,
		FrameTimeout:    500 * time.Millisecond,
		SpeechThreshold: 20,
		AlertThreshold:  0.3,
		LevelHistory:    20,
		SinkCapacity:    100,
		SinkRetain:      50,
		ModeCooldown:    2 * time.Second,
		DrainGrace:      3 * time.Second,
		Live:            audio.LiveConfig{SampleRate: 16000, Channels: 2, FrameDuration: time.Second, QueueSeconds: 5},
		Demo:            audio.DemoConfig{Interval: 3 * time.Second, SampleRate: 16000, Channels: 2},
	}
}

// ConfigFromSettings converts the audio settings section.
func ConfigFromSettings(s *conf.AudioSettings) Config {
	return Config{
		Mode:            Mode(s.Mode),
		FrameTimeout:    s.FrameTimeout,
		SpeechThreshold: s.SpeechThreshold,
		AlertThreshold:  s.AlertThreshold,
		LevelHistory:    s.LevelHistory,
		SinkCapacity:    s.SinkCapacity,
		SinkRetain:      s.SinkRetain,
		ModeCooldown:    s.ModeCooldown,
		DrainGrace:      s.DrainGrace,
		Live: audio.LiveConfig{
			Device:        s.Device,
			SampleRate:    s.SampleRate,
			Channels:      s.Channels,
			FrameDuration: s.FrameDuration,
			QueueSeconds:  s.QueueSeconds,
		},
		Demo: audio.DemoConfig{
			Interval:   s.DemoInterval,
			SampleRate: s.SampleRate,
			Channels:   s.Channels,
		},
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.FrameTimeout <= 0 {
		c.FrameTimeout = d.FrameTimeout
	}
	if c.AlertThreshold <= 0 {
		c.AlertThreshold = d.AlertThreshold
	}
	if c.LevelHistory <= 0 {
		c.LevelHistory = d.LevelHistory
	}
	if c.SinkCapacity <= 0 {
		c.SinkCapacity = d.SinkCapacity
	}
	if c.SinkRetain <= 0 {
		c.SinkRetain = d.SinkRetain
	}
	if c.ModeCooldown < 0 {
		c.ModeCooldown = 0
	}
	if c.DrainGrace < 0 {
		c.DrainGrace = 0
	}
	return c
}
