// internal/api/v2/analyze.go
package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/echolens-ai/echolens/internal/audio"
	"github.com/echolens-ai/echolens/internal/detection"
	"github.com/echolens-ai/echolens/internal/direction"
	"github.com/echolens-ai/echolens/internal/emotion"
	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/logger"
	"github.com/echolens-ai/echolens/internal/pipeline"
	"github.com/echolens-ai/echolens/internal/speech"
)

// TextAnalysisRequest is the body of POST /api/analyze/text.
type TextAnalysisRequest struct {
	Text string `json:"text"`
}

// TextAnalysisResponse is the body returned by POST /api/analyze/text.
type TextAnalysisResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
	emotion.Result
}

// AudioAnalysis is the result of analysing one uploaded file.
type AudioAnalysis struct {
	Duration      float64                  `json:"duration_seconds"`
	SampleRate    int                      `json:"sample_rate"`
	Channels      int                      `json:"channels"`
	Direction     direction.Result         `json:"direction"`
	Sounds        []detection.SoundAlert   `json:"sounds"`
	Transcription *detection.Transcription `json:"transcription,omitempty"`
	Speech        string                   `json:"speech"`
	SpeechError   string                   `json:"speech_error,omitempty"`
}

// AudioAnalysisResponse is the body returned by POST /api/analyze/audio.
type AudioAnalysisResponse struct {
	Success bool          `json:"success"`
	Results AudioAnalysis `json:"results"`
}

// uploadFields are the multipart field names accepted for audio uploads.
var uploadFields = []string{"file", "audio"}

// AnalyzeText handles POST /api/analyze/text. The analysed text is stored as
// a manual transcription when a datastore is configured.
func (c *Controller) AnalyzeText(ctx echo.Context) error {
	var req TextAnalysisRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return c.HandleError(ctx, nil, "No text provided", http.StatusBadRequest)
	}

	reqCtx := ctx.Request().Context()
	result := c.Analyzer.Analyze(reqCtx, text)

	if t, err := detection.NewTranscription(text, 1.0, result.Analysis(), detection.SourceManual, time.Now()); err == nil {
		c.persistTranscription(reqCtx, &t)
	}

	return ctx.JSON(http.StatusOK, TextAnalysisResponse{Success: true, Text: text, Result: result})
}

// AnalyzeAudio handles POST /api/analyze/audio with a WAV or FLAC file in
// the "file" multipart field.
func (c *Controller) AnalyzeAudio(ctx echo.Context) error {
	var err error
	for _, field := range uploadFields {
		fh, ferr := ctx.FormFile(field)
		if ferr != nil {
			err = ferr
			continue
		}
		f, oerr := fh.Open()
		if oerr != nil {
			return c.HandleError(ctx, oerr, "Failed to read uploaded file", http.StatusBadRequest)
		}
		frame, derr := audio.Decode(f)
		f.Close()
		if derr != nil {
			return c.HandleError(ctx, derr, "Uploaded file is not a supported WAV or FLAC file", http.StatusBadRequest)
		}

		c.logger.Debug("analysing uploaded audio",
			logger.String("filename", fh.Filename),
			logger.Int("sample_rate", frame.SampleRate),
			logger.Int("channels", frame.NumChannels()))

		return ctx.JSON(http.StatusOK, AudioAnalysisResponse{
			Success: true,
			Results: c.analyzeFrame(ctx.Request().Context(), frame),
		})
	}
	return c.HandleError(ctx, err, "No audio file provided", http.StatusBadRequest)
}

// analyzeFrame runs direction, classification and speech recognition over a
// decoded upload.
func (c *Controller) analyzeFrame(ctx context.Context, frame audio.Frame) AudioAnalysis {
	prefs := c.Pipeline.Preferences().Get()
	now := time.Now()

	res := AudioAnalysis{
		Duration:   frame.Duration().Seconds(),
		SampleRate: frame.SampleRate,
		Channels:   frame.NumChannels(),
		Direction:  direction.Estimate(frame.Channels),
		Sounds:     []detection.SoundAlert{},
		Speech:     pipeline.CapabilityDisabled,
	}
	mono := frame.Mono()

	if c.Classifier != nil {
		threshold := c.alertThreshold()
		for _, d := range c.Classifier.Classify(ctx, mono, frame.SampleRate) {
			if d.Confidence < threshold {
				continue
			}
			alert, err := detection.NewSoundAlert(d.Label, d.Confidence, detection.AlertOptions{
				Direction:       res.Direction.Direction,
				Angle:           res.Direction.Angle,
				ImportantSounds: prefs.ImportantSounds,
				Source:          detection.SourceUpload,
			}, now)
			if err != nil {
				continue
			}
			res.Sounds = append(res.Sounds, alert)
			c.persistSoundAlert(ctx, &alert)
		}
	}

	if c.Recognizer == nil {
		return res
	}
	res.Speech = pipeline.CapabilityEnabled
	result, err := c.Recognizer.Recognize(ctx, mono, frame.SampleRate)
	switch {
	case errors.Is(err, speech.ErrNoSpeech):
		return res
	case err != nil:
		res.SpeechError = err.Error()
		return res
	}

	var analysis *detection.EmotionAnalysis
	if prefs.EmotionDetectionEnabled {
		analysis = c.Analyzer.Analyze(ctx, result.Text).Analysis()
	}
	t, err := detection.NewTranscription(result.Text, result.Confidence, analysis, detection.SourceUpload, now)
	if err == nil {
		res.Transcription = &t
		c.persistTranscription(ctx, &t)
	}
	return res
}

func (c *Controller) alertThreshold() float64 {
	if c.Settings != nil && c.Settings.Audio.AlertThreshold > 0 {
		return c.Settings.Audio.AlertThreshold
	}
	return pipeline.DefaultConfig().AlertThreshold
}

func (c *Controller) persistTranscription(ctx context.Context, t *detection.Transcription) {
	if c.DS == nil {
		return
	}
	if err := c.DS.SaveTranscription(ctx, t); err != nil {
		c.logger.Warn("failed to store transcription", logger.Error(err))
		return
	}
	c.queryCache.Flush()
}

func (c *Controller) persistSoundAlert(ctx context.Context, a *detection.SoundAlert) {
	if c.DS == nil {
		return
	}
	if err := c.DS.SaveSoundAlert(ctx, a); err != nil {
		c.logger.Warn("failed to store sound alert", logger.Error(err))
		return
	}
	c.queryCache.Flush()
}
