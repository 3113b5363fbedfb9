// Package preferences holds the user preferences that steer the pipeline.
//
// The pipeline reads one immutable snapshot per iteration; updates replace
// the snapshot atomically and are optionally persisted.
package preferences

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/echolens-ai/echolens/internal/conf"
	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/logger"
)

// ComponentPreferences is the component identifier for preference errors.
const ComponentPreferences = "preferences"

// ErrInvalid is returned when an update fails validation.
var ErrInvalid = errors.Newf("invalid preferences").
	Component(ComponentPreferences).
	Category(errors.CategoryValidation).
	Build()

// Preferences is an immutable snapshot. Callers must not modify ImportantSounds.
type Preferences struct {
	TranscriptionEnabled    bool     `json:"transcription_enabled"`
	SoundDetectionEnabled   bool     `json:"sound_detection_enabled"`
	EmotionDetectionEnabled bool     `json:"emotion_detection_enabled"`
	DirectionalAudio        bool     `json:"directional_audio"`
	NotificationVolume      int      `json:"notification_volume"`
	DistanceReporting       bool     `json:"distance_reporting"`
	ImportantSounds         []string `json:"important_sounds"`
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	TranscriptionEnabled    *bool     `json:"transcription_enabled,omitempty"`
	SoundDetectionEnabled   *bool     `json:"sound_detection_enabled,omitempty"`
	EmotionDetectionEnabled *bool     `json:"emotion_detection_enabled,omitempty"`
	DirectionalAudio        *bool     `json:"directional_audio,omitempty"`
	NotificationVolume      *int      `json:"notification_volume,omitempty"`
	DistanceReporting       *bool     `json:"distance_reporting,omitempty"`
	ImportantSounds         *[]string `json:"important_sounds,omitempty"`
}

// Defaults returns the built-in preferences.
func Defaults() Preferences {
	return Preferences{
		TranscriptionEnabled:    true,
		SoundDetectionEnabled:   true,
		EmotionDetectionEnabled: true,
		DirectionalAudio:        true,
		NotificationVolume:      70,
		DistanceReporting:       true,
		ImportantSounds:         []string{"doorbell", "alarm", "phone", "name_called"},
	}
}

// FromSettings converts configured defaults.
func FromSettings(d *conf.PreferenceDefaults) Preferences {
	return Preferences{
		TranscriptionEnabled:    d.TranscriptionEnabled,
		SoundDetectionEnabled:   d.SoundDetectionEnabled,
		EmotionDetectionEnabled: d.EmotionDetectionEnabled,
		DirectionalAudio:        d.DirectionalAudio,
		NotificationVolume:      d.NotificationVolume,
		DistanceReporting:       d.DistanceReporting,
		ImportantSounds:         normalizeSounds(d.ImportantSounds),
	}
}

// Validate checks value ranges.
func (p Preferences) Validate() error {
	if p.NotificationVolume < 0 || p.NotificationVolume > 100 {
		return errors.New(fmt.Errorf("%w: notification_volume must be between 0 and 100, got %d", ErrInvalid, p.NotificationVolume)).
			Component(ComponentPreferences).
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

// Apply returns a copy of p with the patch merged in.
func (p Preferences) Apply(patch Patch) Preferences {
	out := p
	out.ImportantSounds = slices.Clone(p.ImportantSounds)
	if patch.TranscriptionEnabled != nil {
		out.TranscriptionEnabled = *patch.TranscriptionEnabled
	}
	if patch.SoundDetectionEnabled != nil {
		out.SoundDetectionEnabled = *patch.SoundDetectionEnabled
	}
	if patch.EmotionDetectionEnabled != nil {
		out.EmotionDetectionEnabled = *patch.EmotionDetectionEnabled
	}
	if patch.DirectionalAudio != nil {
		out.DirectionalAudio = *patch.DirectionalAudio
	}
	if patch.NotificationVolume != nil {
		out.NotificationVolume = *patch.NotificationVolume
	}
	if patch.DistanceReporting != nil {
		out.DistanceReporting = *patch.DistanceReporting
	}
	if patch.ImportantSounds != nil {
		out.ImportantSounds = normalizeSounds(*patch.ImportantSounds)
	}
	return out
}

func normalizeSounds(sounds []string) []string {
	out := make([]string, 0, len(sounds))
	for _, s := range sounds {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// Persister stores preferences durably.
type Persister interface {
	LoadPreferences(ctx context.Context) (*Preferences, error)
	SavePreferences(ctx context.Context, p Preferences) error
}

// Store holds the current preferences snapshot.
type Store struct {
	current   atomic.Pointer[Preferences]
	mu        sync.Mutex // serializes updates
	persister Persister
	logger    logger.Logger
}

// NewStore creates a store with the initial preferences and an optional persister.
func NewStore(initial Preferences, persister Persister) *Store {
	s := &Store{persister: persister, logger: logger.Global().Module("preferences")}
	initial.ImportantSounds = slices.Clone(initial.ImportantSounds)
	s.current.Store(&initial)
	return s
}

// Load replaces the snapshot with persisted preferences when any exist.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	p, err := s.persister.LoadPreferences(ctx)
	if err != nil {
		return err
	}
	if p == nil {
		return nil
	}
	if err := p.Validate(); err != nil {
		s.logger.Warn("ignoring invalid stored preferences", logger.Error(err))
		return nil
	}
	s.current.Store(p)
	return nil
}

// Get returns the current snapshot.
func (s *Store) Get() Preferences {
	return *s.current.Load()
}

// Update merges a patch, validates and persists it, and publishes the new snapshot.
// A failed persist leaves the snapshot unchanged.
func (s *Store) Update(ctx context.Context, patch Patch) (Preferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.current.Load().Apply(patch)
	if err := next.Validate(); err != nil {
		return Preferences{}, err
	}
	if s.persister != nil {
		if err := s.persister.SavePreferences(ctx, next); err != nil {
			return Preferences{}, err
		}
	}
	s.current.Store(&next)
	s.logger.Info("preferences updated",
		logger.Bool("transcription", next.TranscriptionEnabled),
		logger.Bool("sound_detection", next.SoundDetectionEnabled),
		logger.Bool("emotion_detection", next.EmotionDetectionEnabled),
		logger.Bool("directional_audio", next.DirectionalAudio))
	return next, nil
}
