package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"slices"
	"time"

	"github.com/echolens-ai/echolens/internal/audio"
	"github.com/echolens-ai/echolens/internal/detection"
	"github.com/echolens-ai/echolens/internal/direction"
	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/levels"
	"github.com/echolens-ai/echolens/internal/logger"
	"github.com/echolens-ai/echolens/internal/preferences"
	"github.com/echolens-ai/echolens/internal/speech"
)

// Stage names used in logs and metrics.
const (
	stageSource     = "source"
	stageLevels     = "levels"
	stageDirection  = "direction"
	stageClassifier = "classifier"
	stageSpeech     = "speech"
	stageOutput     = "output"
)

// nonAlertLabels are classifier labels handled by the speech stage or
// carrying no event.
var nonAlertLabels = []string{"speech", "silence", "conversation", "narration, monologue"}

// run is the loop body. It only returns when ctx is cancelled.
func (p *Pipeline) run(ctx, taskCtx context.Context, src audio.Source, origin detection.Source) {
	for {
		if ctx.Err() != nil {
			return
		}

		frame, err := src.NextFrame(ctx, p.cfg.FrameTimeout)
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return
			case errors.Is(err, audio.ErrNoFrame):
				p.deps.Metrics.RecordEmptyRead()
			default:
				p.deps.Metrics.RecordStageError(stageSource)
				p.logger.Warn("failed to read audio frame", logger.Error(err), logger.String("source", src.Name()))
				// back off so a broken source does not spin the loop
				select {
				case <-ctx.Done():
					return
				case <-time.After(p.cfg.FrameTimeout):
				}
			}
			continue
		}

		p.deps.Metrics.RecordFrame(string(origin))
		p.process(ctx, taskCtx, frame, origin)
	}
}

// frameResult carries values between the stages of one iteration.
type frameResult struct {
	level    float64
	hasLevel bool
	dir      direction.Result
}

// process runs every stage for one frame. A failing stage is logged and
// counted, and the remaining stages still run.
func (p *Pipeline) process(ctx, taskCtx context.Context, frame audio.Frame, origin detection.Source) {
	prefs := p.deps.Preferences.Get()
	res := frameResult{dir: direction.Result{Direction: direction.Unknown}}

	p.guard(stageLevels, func() {
		if frame.Synthetic != nil {
			res.level = frame.Synthetic.Level
		} else {
			res.level = levels.Calculate(frame.Channels).Value
		}
		res.hasLevel = true
		p.levels.Record(res.level)
	})

	if frame.Synthetic != nil {
		p.processSynthetic(ctx, taskCtx, frame.Synthetic, prefs, origin)
		return
	}

	if prefs.DirectionalAudio && frame.NumChannels() >= 2 {
		p.guard(stageDirection, func() {
			res.dir = direction.Estimate(frame.Channels)
		})
	}

	var mono []float32
	if (prefs.SoundDetectionEnabled && p.deps.Classifier != nil) ||
		(prefs.TranscriptionEnabled && p.deps.Recognizer != nil) {
		mono = frame.Mono()
	}

	if prefs.SoundDetectionEnabled && p.deps.Classifier != nil {
		p.guard(stageClassifier, func() {
			p.classify(ctx, mono, frame, res, prefs, origin)
		})
	}

	if prefs.TranscriptionEnabled && p.deps.Recognizer != nil && res.hasLevel && res.level >= p.cfg.SpeechThreshold {
		// the frame is not retained past this iteration
		p.dispatchSpeech(taskCtx, slices.Clone(mono), frame.SampleRate, prefs, origin)
	}
}

func (p *Pipeline) classify(ctx context.Context, mono []float32, frame audio.Frame, res frameResult, prefs preferences.Preferences, origin detection.Source) {
	distance := detection.DistanceUnknown
	if prefs.DistanceReporting && res.hasLevel {
		distance = detection.DistanceFromLevel(res.level)
	}

	for _, det := range p.deps.Classifier.Classify(ctx, mono, frame.SampleRate) {
		if det.Confidence < p.cfg.AlertThreshold {
			continue
		}
		if slices.Contains(nonAlertLabels, detection.NormalizeLabel(det.Label)) {
			continue
		}
		alert, err := detection.NewSoundAlert(det.Label, det.Confidence, detection.AlertOptions{
			Direction:       res.dir.Direction,
			Angle:           res.dir.Angle,
			Distance:        distance,
			ImportantSounds: prefs.ImportantSounds,
			Source:          origin,
		}, frame.Timestamp)
		if err != nil {
			p.logger.Debug("skipping invalid detection", logger.Error(err), logger.String("label", det.Label))
			continue
		}
		p.appendAlert(ctx, alert)
	}
}

// processSynthetic turns a demo event into results without touching the
// classifier or recognizer.
func (p *Pipeline) processSynthetic(ctx, taskCtx context.Context, ev *audio.SyntheticEvent, prefs preferences.Preferences, origin detection.Source) {
	if s := ev.Sound; s != nil && prefs.SoundDetectionEnabled && s.Confidence >= p.cfg.AlertThreshold {
		p.guard(stageClassifier, func() {
			opts := detection.AlertOptions{
				Direction:       direction.Unknown,
				Distance:        detection.DistanceUnknown,
				ImportantSounds: prefs.ImportantSounds,
				Source:          origin,
			}
			if prefs.DirectionalAudio {
				opts.Direction, opts.Angle = s.Direction, s.Angle
			}
			if prefs.DistanceReporting {
				opts.Distance = s.Distance
			}
			alert, err := detection.NewSoundAlert(s.Label, s.Confidence, opts, time.Now())
			if err != nil {
				p.logger.Debug("skipping invalid demo sound", logger.Error(err))
				return
			}
			p.appendAlert(ctx, alert)
		})
	}

	if s := ev.Speech; s != nil && prefs.TranscriptionEnabled {
		p.spawn(taskCtx, func(ctx context.Context) {
			var analysis *detection.EmotionAnalysis
			if prefs.EmotionDetectionEnabled {
				analysis = &detection.EmotionAnalysis{
					Emotion:    s.Emotion,
					Confidence: s.EmotionConfidence,
					Intensity:  s.EmotionConfidence * 0.8,
					Source:     detection.AnalysisDemo,
				}
			}
			p.finishTranscription(ctx, s.Text, s.Confidence, analysis, origin)
		})
	}
}

// dispatchSpeech starts a recognition task for one frame of audio.
func (p *Pipeline) dispatchSpeech(taskCtx context.Context, mono []float32, sampleRate int, prefs preferences.Preferences, origin detection.Source) {
	p.spawn(taskCtx, func(ctx context.Context) {
		result, err := p.deps.Recognizer.Recognize(ctx, mono, sampleRate)
		if err != nil {
			switch {
			case errors.Is(err, speech.ErrNoSpeech), ctx.Err() != nil:
			default:
				p.deps.Metrics.RecordStageError(stageSpeech)
				p.logger.Warn("speech recognition failed", logger.Error(err))
			}
			return
		}

		var analysis *detection.EmotionAnalysis
		if prefs.EmotionDetectionEnabled && p.deps.Analyzer != nil {
			analysis = p.deps.Analyzer.Analyze(ctx, result.Text).Analysis()
		}
		p.finishTranscription(ctx, result.Text, result.Confidence, analysis, origin)
	})
}

// spawn runs fn as a tracked speech task.
func (p *Pipeline) spawn(ctx context.Context, fn func(ctx context.Context)) {
	p.tasks.Add(1)
	p.deps.Metrics.SetInFlightTasks(int(p.inflight.Add(1)))
	go func() {
		defer func() {
			p.deps.Metrics.SetInFlightTasks(int(p.inflight.Add(-1)))
			p.tasks.Done()
		}()
		p.guard(stageSpeech, func() { fn(ctx) })
	}()
}

func (p *Pipeline) finishTranscription(ctx context.Context, text string, confidence float64, analysis *detection.EmotionAnalysis, origin detection.Source) {
	// tasks cancelled after the drain grace drop their result
	if ctx.Err() != nil {
		return
	}
	t, err := detection.NewTranscription(text, confidence, analysis, origin, time.Now())
	if err != nil {
		p.logger.Debug("skipping invalid transcription", logger.Error(err))
		return
	}
	p.appendTranscription(ctx, t)
}

func (p *Pipeline) appendAlert(ctx context.Context, a detection.SoundAlert) {
	if evicted := p.alerts.Append(a); evicted > 0 {
		p.logger.Debug("trimmed sound alerts", logger.Int("evicted", evicted))
	}
	p.deps.Metrics.RecordSoundAlert(string(a.Priority))
	p.logger.Debug("sound alert",
		logger.String("sound", a.Sound),
		logger.String("direction", a.Direction),
		logger.String("priority", string(a.Priority)),
		logger.Float64("confidence", a.Confidence))

	p.guard(stageOutput, func() {
		if p.deps.Repository != nil {
			if err := p.deps.Repository.SaveSoundAlert(ctx, &a); err != nil {
				p.logger.Warn("failed to store sound alert", logger.Error(err))
			}
		}
		for _, h := range p.deps.Handlers {
			if err := h.HandleSoundAlert(ctx, a); err != nil {
				p.logger.Warn("sound alert handler failed", logger.Error(err))
			}
		}
	})
}

func (p *Pipeline) appendTranscription(ctx context.Context, t detection.Transcription) {
	if evicted := p.transcriptions.Append(t); evicted > 0 {
		p.logger.Debug("trimmed transcriptions", logger.Int("evicted", evicted))
	}
	p.deps.Metrics.RecordTranscription(t.AnalysisSource)
	p.logger.Debug("transcription",
		logger.String("emotion", t.Emotion),
		logger.String("analysis", t.AnalysisSource),
		logger.Float64("confidence", t.Confidence))

	p.guard(stageOutput, func() {
		if p.deps.Repository != nil {
			if err := p.deps.Repository.SaveTranscription(ctx, &t); err != nil {
				p.logger.Warn("failed to store transcription", logger.Error(err))
			}
		}
		for _, h := range p.deps.Handlers {
			if err := h.HandleTranscription(ctx, t); err != nil {
				p.logger.Warn("transcription handler failed", logger.Error(err))
			}
		}
	})
}

// guard runs fn and converts a panic into a logged stage error.
func (p *Pipeline) guard(stage string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			p.deps.Metrics.RecordStageError(stage)
			p.logger.Error("pipeline stage panicked",
				logger.String("stage", stage),
				logger.String("panic", fmt.Sprint(r)),
				logger.String("stack", string(debug.Stack())))
		}
	}()
	fn()
}
