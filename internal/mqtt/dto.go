package mqtt

import (
	"time"

	"github.com/echolens-ai/echolens/internal/detection"
)

// SoundAlertDTO is the payload published to <topic>/sounds.
//
// Field names are part of the MQTT contract consumed by home automation
// rules; add fields rather than renaming them.
type SoundAlertDTO struct {
	ID          string  `json:"id"`
	Node        string  `json:"node"`
	Sound       string  `json:"sound"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
	Direction   string  `json:"direction"`
	Angle       float64 `json:"angle"`
	Distance    string  `json:"distance"`
	Priority    string  `json:"priority"`
	Source      string  `json:"source"`
	Timestamp   string  `json:"timestamp"` // RFC 3339
}

// TranscriptionDTO is the payload published to <topic>/transcriptions.
type TranscriptionDTO struct {
	ID                string  `json:"id"`
	Node              string  `json:"node"`
	Text              string  `json:"text"`
	Confidence        float64 `json:"confidence"`
	Emotion           string  `json:"emotion"`
	EmotionConfidence float64 `json:"emotion_confidence"`
	EmotionIntensity  float64 `json:"emotion_intensity"`
	AnalysisSource    string  `json:"analysis_source"`
	Source            string  `json:"source"`
	Timestamp         string  `json:"timestamp"`
}

// NewSoundAlertDTO creates the payload of a sound alert.
func NewSoundAlertDTO(node string, a *detection.SoundAlert) *SoundAlertDTO {
	return &SoundAlertDTO{
		ID:          a.ID,
		Node:        node,
		Sound:       a.Sound,
		Category:    a.Category,
		Description: a.Description,
		Confidence:  a.Confidence,
		Direction:   a.Direction,
		Angle:       a.Angle,
		Distance:    a.Distance,
		Priority:    string(a.Priority),
		Source:      string(a.Source),
		Timestamp:   a.Timestamp.Format(time.RFC3339),
	}
}

// NewTranscriptionDTO creates the payload of a transcription.
func NewTranscriptionDTO(node string, t *detection.Transcription) *TranscriptionDTO {
	return &TranscriptionDTO{
		ID:                t.ID,
		Node:              node,
		Text:              t.Text,
		Confidence:        t.Confidence,
		Emotion:           t.Emotion,
		EmotionConfidence: t.EmotionConfidence,
		EmotionIntensity:  t.EmotionIntensity,
		AnalysisSource:    t.AnalysisSource,
		Source:            string(t.Source),
		Timestamp:         t.Timestamp.Format(time.RFC3339),
	}
}
