// model.go defines the database records of the application
package datastore

import (
	"time"

	"github.com/echolens-ai/echolens/internal/chat"
	"github.com/echolens-ai/echolens/internal/detection"
	"github.com/echolens-ai/echolens/internal/preferences"
)

// Transcription is a stored transcription with its emotion analysis.
type Transcription struct {
	ID                string `gorm:"primaryKey;size:36"`
	Text              string `gorm:"type:text"`
	Confidence        float64
	Emotion           string `gorm:"size:32;index:idx_transcriptions_emotion"`
	EmotionConfidence float64
	EmotionIntensity  float64
	Explanation       string    `gorm:"type:text"`
	AnalysisSource    string    `gorm:"size:16"`
	Source            string    `gorm:"size:16"`
	CreatedAt         time.Time `gorm:"index:idx_transcriptions_created_at"`
}

// SoundAlert is a stored sound alert.
type SoundAlert struct {
	ID          string `gorm:"primaryKey;size:36"`
	Sound       string `gorm:"size:64;index:idx_sound_alerts_sound"`
	Category    string `gorm:"size:32"`
	Description string `gorm:"size:255"`
	Confidence  float64
	Direction   string `gorm:"size:16"`
	Angle       float64
	Distance    string    `gorm:"size:16"`
	Priority    string    `gorm:"size:8;index:idx_sound_alerts_priority"`
	Source      string    `gorm:"size:16"`
	CreatedAt   time.Time `gorm:"index:idx_sound_alerts_created_at"`
}

// ChatMessage is one message of a chat session.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey"`
	SessionID string    `gorm:"size:64;index:idx_chat_messages_session"`
	Role      string    `gorm:"size:16"`
	Content   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"index:idx_chat_messages_created_at"`
}

// UserPreferences holds the single preferences row.
type UserPreferences struct {
	ID                      uint `gorm:"primaryKey"`
	TranscriptionEnabled    bool
	SoundDetectionEnabled   bool
	EmotionDetectionEnabled bool
	DirectionalAudio        bool
	NotificationVolume      int
	DistanceReporting       bool
	ImportantSounds         []string `gorm:"serializer:json"`
	UpdatedAt               time.Time
}

// preferencesRowID is the primary key of the single preferences row.
const preferencesRowID = 1

func transcriptionFromDetection(t *detection.Transcription) *Transcription {
	return &Transcription{
		ID:                t.ID,
		Text:              t.Text,
		Confidence:        t.Confidence,
		Emotion:           t.Emotion,
		EmotionConfidence: t.EmotionConfidence,
		EmotionIntensity:  t.EmotionIntensity,
		Explanation:       t.Explanation,
		AnalysisSource:    t.AnalysisSource,
		Source:            string(t.Source),
		CreatedAt:         t.Timestamp,
	}
}

func (t *Transcription) toDetection() detection.Transcription {
	return detection.Transcription{
		ID:                t.ID,
		Text:              t.Text,
		Confidence:        t.Confidence,
		Emotion:           t.Emotion,
		EmotionConfidence: t.EmotionConfidence,
		EmotionIntensity:  t.EmotionIntensity,
		Explanation:       t.Explanation,
		AnalysisSource:    t.AnalysisSource,
		Source:            detection.Source(t.Source),
		Timestamp:         t.CreatedAt,
	}
}

func soundAlertFromDetection(a *detection.SoundAlert) *SoundAlert {
	return &SoundAlert{
		ID:          a.ID,
		Sound:       a.Sound,
		Category:    a.Category,
		Description: a.Description,
		Confidence:  a.Confidence,
		Direction:   a.Direction,
		Angle:       a.Angle,
		Distance:    a.Distance,
		Priority:    string(a.Priority),
		Source:      string(a.Source),
		CreatedAt:   a.Timestamp,
	}
}

func (a *SoundAlert) toDetection() detection.SoundAlert {
	return detection.SoundAlert{
		ID:          a.ID,
		Sound:       a.Sound,
		Category:    a.Category,
		Description: a.Description,
		Confidence:  a.Confidence,
		Direction:   a.Direction,
		Angle:       a.Angle,
		Distance:    a.Distance,
		Priority:    detection.Priority(a.Priority),
		Source:      detection.Source(a.Source),
		Timestamp:   a.CreatedAt,
	}
}

func (m *ChatMessage) toChat() chat.Message {
	return chat.Message{Role: m.Role, Content: m.Content, Timestamp: m.CreatedAt}
}

func preferencesRecord(p preferences.Preferences) *UserPreferences {
	return &UserPreferences{
		ID:                      preferencesRowID,
		TranscriptionEnabled:    p.TranscriptionEnabled,
		SoundDetectionEnabled:   p.SoundDetectionEnabled,
		EmotionDetectionEnabled: p.EmotionDetectionEnabled,
		DirectionalAudio:        p.DirectionalAudio,
		NotificationVolume:      p.NotificationVolume,
		DistanceReporting:       p.DistanceReporting,
		ImportantSounds:         p.ImportantSounds,
	}
}

func (r *UserPreferences) toPreferences() preferences.Preferences {
	return preferences.Preferences{
		TranscriptionEnabled:    r.TranscriptionEnabled,
		SoundDetectionEnabled:   r.SoundDetectionEnabled,
		EmotionDetectionEnabled: r.EmotionDetectionEnabled,
		DirectionalAudio:        r.DirectionalAudio,
		NotificationVolume:      r.NotificationVolume,
		DistanceReporting:       r.DistanceReporting,
		ImportantSounds:         r.ImportantSounds,
	}
}
