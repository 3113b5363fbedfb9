package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echolens-ai/echolens/internal/app"
	"github.com/echolens-ai/echolens/internal/audio"
	"github.com/echolens-ai/echolens/internal/classifier"
	"github.com/echolens-ai/echolens/internal/conf"
	"github.com/echolens-ai/echolens/internal/detection"
	"github.com/echolens-ai/echolens/internal/direction"
	"github.com/echolens-ai/echolens/internal/emotion"
	"github.com/echolens-ai/echolens/internal/preferences"
	"github.com/echolens-ai/echolens/internal/speech"
)

type stubRecognizer struct {
	result speech.Result
	err    error
}

func (r stubRecognizer) Recognize(context.Context, []float32, int) (speech.Result, error) {
	return r.result, r.err
}

func testApp(rec speech.Recognizer) *app.App {
	s := &conf.Settings{}
	s.Audio.AlertThreshold = 0.3
	return &app.App{
		Settings:    s,
		Preferences: preferences.NewStore(preferences.Defaults(), nil),
		Analyzer:    emotion.NewService(nil, 0),
		Recognizer:  rec,
		Classifier: classifier.Func(func(context.Context, []float32, int) []classifier.Detection {
			return []classifier.Detection{{Label: "doorbell", Confidence: 0.8}, {Label: "speech", Confidence: 0.1}}
		}),
	}
}

func stereoFrame() audio.Frame {
	left := make([]float32, 1600)
	right := make([]float32, 1600)
	for i := range left {
		left[i], right[i] = 0.5, 0.1
	}
	return audio.Frame{Channels: [][]float32{left, right}, SampleRate: 16000}
}

func TestFile(t *testing.T) {
	t.Parallel()

	a := testApp(stubRecognizer{result: speech.Result{Text: "I am so happy today", Confidence: 0.9}})
	res := File(context.Background(), a, stereoFrame())

	assert.InDelta(t, 0.1, res.Duration, 1e-9)
	assert.Equal(t, 2, res.Channels)
	assert.Equal(t, direction.Left, res.Direction.Direction)

	require.Len(t, res.Sounds, 1)
	assert.Equal(t, "doorbell", res.Sounds[0].Sound)
	assert.Equal(t, detection.SourceUpload, res.Sounds[0].Source)

	require.NotNil(t, res.Transcription)
	assert.Equal(t, "happy", res.Transcription.Emotion)
	assert.Empty(t, res.SpeechError)
}

func TestFile_SpeechOutcomes(t *testing.T) {
	t.Parallel()

	res := File(context.Background(), testApp(nil), stereoFrame())
	assert.Nil(t, res.Transcription)

	res = File(context.Background(), testApp(stubRecognizer{err: speech.ErrNoSpeech}), stereoFrame())
	assert.Nil(t, res.Transcription)
	assert.Empty(t, res.SpeechError)

	res = File(context.Background(), testApp(stubRecognizer{err: assert.AnError}), stereoFrame())
	assert.Nil(t, res.Transcription)
	assert.NotEmpty(t, res.SpeechError)
}

func TestPrintJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, printJSON(&buf, FileResult{File: "a.wav", Sounds: []detection.SoundAlert{}}))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "a.wav", decoded["file"])
	assert.Contains(t, buf.String(), "\n  \"")
}
