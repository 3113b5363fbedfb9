// Package analyze implements one-shot analysis of text and audio files.
package analyze

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/echolens-ai/echolens/internal/app"
	"github.com/echolens-ai/echolens/internal/audio"
	"github.com/echolens-ai/echolens/internal/conf"
	"github.com/echolens-ai/echolens/internal/detection"
	"github.com/echolens-ai/echolens/internal/direction"
	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/speech"
)

// FileResult is the printed result of analysing an audio file.
type FileResult struct {
	File          string                   `json:"file"`
	Duration      float64                  `json:"duration_seconds"`
	SampleRate    int                      `json:"sample_rate"`
	Channels      int                      `json:"channels"`
	Direction     direction.Result         `json:"direction"`
	Sounds        []detection.SoundAlert   `json:"sounds"`
	Transcription *detection.Transcription `json:"transcription,omitempty"`
	SpeechError   string                   `json:"speech_error,omitempty"`
}

// Command creates the analyze command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze text or an audio file once",
	}
	cmd.AddCommand(textCommand(settings), fileCommand(settings))
	return cmd
}

func textCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "text [text...]",
		Short: "Detect the emotion of a text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.TrimSpace(strings.Join(args, " "))
			if text == "" {
				return errors.Newf("no text provided").
					Component("cli").
					Category(errors.CategoryValidation).
					Build()
			}
			// the database is not needed for one-shot analysis
			settings.Output.SQLite.Enabled = false
			settings.Output.MySQL.Enabled = false

			a, err := app.New(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer a.Close()
			return printJSON(cmd.OutOrStdout(), a.Analyzer.Analyze(cmd.Context(), text))
		},
	}
}

func fileCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "file [input.wav|input.flac]",
		Short: "Detect sounds, direction and speech in an audio file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			frame, err := audio.DecodeFile(args[0])
			if err != nil {
				return err
			}
			settings.Output.SQLite.Enabled = false
			settings.Output.MySQL.Enabled = false

			a, err := app.New(cmd.Context(), settings)
			if err != nil {
				return err
			}
			defer a.Close()

			res := File(cmd.Context(), a, frame)
			res.File = args[0]
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
}

// File classifies, locates and transcribes a decoded frame with the
// services of a.
func File(ctx context.Context, a *app.App, frame audio.Frame) FileResult {
	prefs := a.Preferences.Get()
	now := time.Now()
	res := FileResult{
		Duration:   frame.Duration().Seconds(),
		SampleRate: frame.SampleRate,
		Channels:   frame.NumChannels(),
		Direction:  direction.Estimate(frame.Channels),
		Sounds:     []detection.SoundAlert{},
	}
	mono := frame.Mono()

	if a.Classifier != nil {
		for _, d := range a.Classifier.Classify(ctx, mono, frame.SampleRate) {
			if d.Confidence < a.Settings.Audio.AlertThreshold {
				continue
			}
			alert, err := detection.NewSoundAlert(d.Label, d.Confidence, detection.AlertOptions{
				Direction:       res.Direction.Direction,
				Angle:           res.Direction.Angle,
				ImportantSounds: prefs.ImportantSounds,
				Source:          detection.SourceUpload,
			}, now)
			if err == nil {
				res.Sounds = append(res.Sounds, alert)
			}
		}
	}

	if a.Recognizer == nil {
		return res
	}
	result, err := a.Recognizer.Recognize(ctx, mono, frame.SampleRate)
	switch {
	case errors.Is(err, speech.ErrNoSpeech):
		return res
	case err != nil:
		res.SpeechError = err.Error()
		return res
	}

	var analysis *detection.EmotionAnalysis
	if prefs.EmotionDetectionEnabled {
		analysis = a.Analyzer.Analyze(ctx, result.Text).Analysis()
	}
	if t, err := detection.NewTranscription(result.Text, result.Confidence, analysis, detection.SourceUpload, now); err == nil {
		res.Transcription = &t
	}
	return res
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
