// Package detection provides the result models produced by the audio pipeline.
// These models are used at runtime and are independent of database schema.
//
// Two streams are produced:
//   - Transcription: recognised speech together with its emotion analysis
//   - SoundAlert: a classified environmental sound with direction and priority
//
// Both are immutable once created. They are kept in bounded in-memory sinks
// (see Sink) and optionally mirrored to durable storage through Repository.
package detection

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Source identifies where a result originated.
type Source string

const (
	SourceLive   Source = "live"         // real capture device
	SourceDemo   Source = "demo"         // synthetic demo generator
	SourceManual Source = "manual_input" // text submitted through the API
	SourceUpload Source = "upload"       // uploaded audio file
)

// Analysis sources of an emotion label.
const (
	AnalysisRemote   = "remote"
	AnalysisFallback = "fallback"
	AnalysisDemo     = "demo"
	AnalysisDisabled = "disabled"
)

// EmotionNeutral is used when no emotion analysis is available.
const EmotionNeutral = "neutral"

// Emotions lists the emotion labels a transcription can carry.
var Emotions = []string{
	"happy", "excited", "sad", "angry", "surprised", "confused",
	"frustrated", EmotionNeutral, "concerned", "sarcastic",
}

// IsEmotion reports whether label is a known emotion label.
func IsEmotion(label string) bool {
	for _, e := range Emotions {
		if e == label {
			return true
		}
	}
	return false
}

// Transcription is recognised speech plus its emotion analysis.
type Transcription struct {
	ID                string    `json:"id"`
	Text              string    `json:"text"`
	Confidence        float64   `json:"confidence"`
	Emotion           string    `json:"emotion"`
	EmotionConfidence float64   `json:"emotion_confidence"`
	EmotionIntensity  float64   `json:"emotion_intensity"`
	Explanation       string    `json:"explanation,omitempty"`
	AnalysisSource    string    `json:"analysis_source"`
	Source            Source    `json:"source"`
	Timestamp         time.Time `json:"timestamp"`
}

// SoundAlert is an environmental sound that cleared the pipeline's confidence floor.
type SoundAlert struct {
	ID          string    `json:"id"`
	Sound       string    `json:"sound"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	Confidence  float64   `json:"confidence"`
	Direction   string    `json:"direction"`
	Angle       float64   `json:"angle"`
	Distance    string    `json:"distance"`
	Priority    Priority  `json:"priority"`
	Source      Source    `json:"source"`
	Timestamp   time.Time `json:"timestamp"`
}

// EmotionAnalysis carries the emotion fields attached to a transcription.
type EmotionAnalysis struct {
	Emotion     string
	Confidence  float64
	Intensity   float64
	Explanation string
	Source      string
}

// NewTranscription creates a transcription and validates its input.
// A nil analysis yields a neutral transcription without emotion scores.
func NewTranscription(text string, confidence float64, analysis *EmotionAnalysis, source Source, ts time.Time) (Transcription, error) {
	if text == "" {
		return Transcription{}, fmt.Errorf("transcription text cannot be empty")
	}
	if confidence < 0.0 || confidence > 1.0 {
		return Transcription{}, fmt.Errorf("confidence must be between 0.0 and 1.0, got %f", confidence)
	}

	t := Transcription{
		ID:             uuid.NewString(),
		Text:           text,
		Confidence:     confidence,
		Emotion:        EmotionNeutral,
		AnalysisSource: AnalysisDisabled,
		Source:         source,
		Timestamp:      ts,
	}
	if analysis != nil {
		if analysis.Emotion != "" {
			t.Emotion = analysis.Emotion
		}
		t.EmotionConfidence = analysis.Confidence
		t.EmotionIntensity = analysis.Intensity
		t.Explanation = analysis.Explanation
		t.AnalysisSource = analysis.Source
	}
	return t, nil
}

// AlertOptions carries the optional fields of a sound alert.
type AlertOptions struct {
	Direction       string
	Angle           float64
	Distance        string
	ImportantSounds []string
	Source          Source
}

// NewSoundAlert creates a sound alert for a classifier label. The label is
// normalised to lower case, and category, priority and description are derived
// from the sound catalogue.
func NewSoundAlert(label string, confidence float64, opts AlertOptions, ts time.Time) (SoundAlert, error) {
	sound := NormalizeLabel(label)
	if sound == "" {
		return SoundAlert{}, fmt.Errorf("sound label cannot be empty")
	}
	if confidence < 0.0 || confidence > 1.0 {
		return SoundAlert{}, fmt.Errorf("confidence must be between 0.0 and 1.0, got %f", confidence)
	}

	direction := opts.Direction
	if direction == "" {
		direction = DirectionUnknown
	}
	distance := opts.Distance
	if distance == "" {
		distance = DistanceUnknown
	}

	return SoundAlert{
		ID:          uuid.NewString(),
		Sound:       sound,
		Category:    CategoryOf(sound),
		Description: Describe(sound, direction),
		Confidence:  confidence,
		Direction:   direction,
		Angle:       opts.Angle,
		Distance:    distance,
		Priority:    PriorityOf(sound, opts.ImportantSounds),
		Source:      opts.Source,
		Timestamp:   ts,
	}, nil
}
