package pipeline

import (
	"time"

	"github.com/echolens-ai/echolens/internal/detection"
	"github.com/echolens-ai/echolens/internal/llm"
	"github.com/echolens-ai/echolens/internal/preferences"
)

// Capability values reported for optional stages.
const (
	CapabilityEnabled  = "enabled"
	CapabilityDisabled = "disabled"
)

// Status is a point-in-time view of the pipeline.
type Status struct {
	State      State  `json:"state"`
	Running    bool   `json:"running"`
	Mode       Mode   `json:"mode"`
	Source     string `json:"source,omitempty"`
	Audio      string `json:"audio"`
	GeminiAPI  string `json:"gemini_api"`
	Speech     string `json:"speech"`
	Classifier string `json:"classifier"`
	Datastore  string `json:"datastore"`
	// ModelsAvailable is true when the classifier, the speech recognizer or a
	// connected generative model can analyse audio. Otherwise only the demo
	// payloads and keyword fallbacks run.
	ModelsAvailable bool                    `json:"models_available"`
	StartedAt       *time.Time              `json:"started_at,omitempty"`
	InFlightTasks   int64                   `json:"in_flight_tasks"`
	Transcriptions  int                     `json:"transcriptions"`
	SoundAlerts     int                     `json:"sound_alerts"`
	Preferences     preferences.Preferences `json:"preferences"`
}

// Status reports the current state, mode and capability of each stage.
func (p *Pipeline) Status() Status {
	p.mu.RLock()
	s := Status{
		State:   p.state,
		Running: p.state == StateRunning,
		Mode:    p.mode,
		Audio:   p.audio,
	}
	if p.source != nil {
		s.Source = p.source.Name()
	}
	if !p.startedAt.IsZero() && s.Running {
		started := p.startedAt
		s.StartedAt = &started
	}
	p.mu.RUnlock()

	if s.Audio == "" {
		s.Audio = AudioSimulated
		if s.Mode == ModeLive {
			s.Audio = AudioAvailable
		}
	}
	s.GeminiAPI = llm.StatusOf(p.deps.Completer)
	s.Speech = capability(p.deps.Recognizer != nil)
	s.Classifier = capability(p.deps.Classifier != nil)
	s.Datastore = capability(p.deps.Repository != nil)
	s.ModelsAvailable = p.deps.Classifier != nil || p.deps.Recognizer != nil ||
		s.GeminiAPI == llm.StatusConnected
	s.InFlightTasks = p.inflight.Load()
	s.Transcriptions = p.transcriptions.Len()
	s.SoundAlerts = p.alerts.Len()
	s.Preferences = p.deps.Preferences.Get()
	return s
}

func capability(on bool) string {
	if on {
		return CapabilityEnabled
	}
	return CapabilityDisabled
}

// Mode returns the current mode.
func (p *Pipeline) Mode() Mode {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mode
}

// AudioLevels returns the rolling level history, oldest first.
func (p *Pipeline) AudioLevels() []float64 {
	return p.levels.Snapshot()
}

// Transcriptions returns a page of transcriptions, newest first. An empty
// emotion matches all.
func (p *Pipeline) Transcriptions(limit, page int, emotion string) detection.Page[detection.Transcription] {
	var filter func(detection.Transcription) bool
	if emotion != "" {
		filter = func(t detection.Transcription) bool { return t.Emotion == emotion }
	}
	return p.transcriptions.Query(limit, page, filter)
}

// SoundAlerts returns a page of sound alerts, newest first. An empty
// priority matches all.
func (p *Pipeline) SoundAlerts(limit, page int, priority detection.Priority) detection.Page[detection.SoundAlert] {
	var filter func(detection.SoundAlert) bool
	if priority != "" {
		filter = func(a detection.SoundAlert) bool { return a.Priority == priority }
	}
	return p.alerts.Query(limit, page, filter)
}

// ClearData empties both result sinks. The level history and any
// configured repository are left untouched.
func (p *Pipeline) ClearData() {
	p.transcriptions.Clear()
	p.alerts.Clear()
	p.logger.Info("pipeline results cleared")
}

// Preferences returns the preferences store the pipeline reads.
func (p *Pipeline) Preferences() *preferences.Store {
	return p.deps.Preferences
}
