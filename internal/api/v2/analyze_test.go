package api

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echolens-ai/echolens/internal/classifier"
	"github.com/echolens-ai/echolens/internal/detection"
	"github.com/echolens-ai/echolens/internal/direction"
	"github.com/echolens-ai/echolens/internal/pipeline"
	"github.com/echolens-ai/echolens/internal/speech"
)

type fakeRecognizer struct {
	result speech.Result
	err    error
}

func (r fakeRecognizer) Recognize(context.Context, []float32, int) (speech.Result, error) {
	return r.result, r.err
}

// stereoWAV encodes one second of 8 kHz audio, louder on the left channel.
func stereoWAV(t *testing.T) []byte {
	t.Helper()
	const rate = 8000

	data := make([]int, 0, 2*rate)
	for i := range rate {
		sign := 1
		if i%2 == 1 {
			sign = -1
		}
		data = append(data, sign*16384, sign*4096)
	}

	path := filepath.Join(t.TempDir(), "upload.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	enc := wav.NewEncoder(f, rate, 16, 2, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Data:           data,
		Format:         &goaudio.Format{SampleRate: rate, NumChannels: 2},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return raw
}

func uploadRequest(t *testing.T, field string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, "clip.wav")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/analyze/audio", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestAnalyzeText(t *testing.T) {
	t.Parallel()

	e, _ := setupTestController(t, newFakePipeline())

	rec := doRequest(t, e, http.MethodPost, "/api/analyze/text", TextAnalysisRequest{Text: "I am so happy and glad today"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[TextAnalysisResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "I am so happy and glad today", resp.Text)
	assert.Equal(t, "happy", resp.Emotion)
	assert.Equal(t, detection.AnalysisFallback, resp.Source)
	assert.Greater(t, resp.Confidence, 0.0)
}

func TestAnalyzeText_Rejects(t *testing.T) {
	t.Parallel()

	e, _ := setupTestController(t, newFakePipeline())
	for name, body := range map[string]any{
		"empty text":     TextAnalysisRequest{},
		"blank text":     TextAnalysisRequest{Text: "   "},
		"malformed body": `{"text":`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := doRequest(t, e, http.MethodPost, "/api/analyze/text", body)
			assertErrorResponse(t, rec, http.StatusBadRequest)
		})
	}
}

func TestAnalyzeText_StoresManualTranscription(t *testing.T) {
	t.Parallel()

	ds := newTestDataStore(t)
	e, _ := setupTestController(t, newFakePipeline(), WithDataStore(ds))

	rec := doRequest(t, e, http.MethodPost, "/api/analyze/text", TextAnalysisRequest{Text: "this is terrible and awful"})
	require.Equal(t, http.StatusOK, rec.Code)

	stored, err := ds.GetTranscriptions(context.Background(), 10, 0, "")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, detection.SourceManual, stored[0].Source)
	assert.InDelta(t, 1.0, stored[0].Confidence, 1e-9)
}

func TestAnalyzeAudio(t *testing.T) {
	t.Parallel()

	cls := classifier.Func(func(context.Context, []float32, int) []classifier.Detection {
		return []classifier.Detection{
			{Label: "doorbell", Confidence: 0.9},
			{Label: "speech", Confidence: 0.1},
		}
	})
	rcg := fakeRecognizer{result: speech.Result{Text: "I am so happy you came", Confidence: 0.85}}
	e, _ := setupTestController(t, newFakePipeline(), WithClassifier(cls), WithRecognizer(rcg))

	for _, field := range []string{"file", "audio"} {
		t.Run(field, func(t *testing.T) {
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, uploadRequest(t, field, stereoWAV(t)))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			resp := decode[AudioAnalysisResponse](t, rec)
			require.True(t, resp.Success)
			res := resp.Results
			assert.Equal(t, 8000, res.SampleRate)
			assert.Equal(t, 2, res.Channels)
			assert.InDelta(t, 1.0, res.Duration, 0.01)
			assert.Equal(t, direction.Left, res.Direction.Direction)

			require.Len(t, res.Sounds, 1, "detections below the alert threshold are dropped")
			alert := res.Sounds[0]
			assert.Equal(t, "doorbell", alert.Sound)
			assert.Equal(t, detection.PriorityHigh, alert.Priority)
			assert.Equal(t, direction.Left, alert.Direction)
			assert.Equal(t, detection.SourceUpload, alert.Source)

			assert.Equal(t, pipeline.CapabilityEnabled, res.Speech)
			require.NotNil(t, res.Transcription)
			assert.Equal(t, "I am so happy you came", res.Transcription.Text)
			assert.Equal(t, "happy", res.Transcription.Emotion)
			assert.Empty(t, res.SpeechError)
		})
	}
}

func TestAnalyzeAudio_SpeechOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		recognizer speech.Recognizer
		wantSpeech string
		wantError  bool
	}{
		{"no recognizer", nil, pipeline.CapabilityDisabled, false},
		{"no speech", fakeRecognizer{err: speech.ErrNoSpeech}, pipeline.CapabilityEnabled, false},
		{"service failure", fakeRecognizer{err: speech.ErrService}, pipeline.CapabilityEnabled, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var opts []Option
			if tt.recognizer != nil {
				opts = append(opts, WithRecognizer(tt.recognizer))
			}
			e, _ := setupTestController(t, newFakePipeline(), opts...)

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, uploadRequest(t, "file", stereoWAV(t)))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			res := decode[AudioAnalysisResponse](t, rec).Results
			assert.Equal(t, tt.wantSpeech, res.Speech)
			assert.Nil(t, res.Transcription)
			assert.Empty(t, res.Sounds)
			assert.Equal(t, tt.wantError, res.SpeechError != "")
		})
	}
}

func TestAnalyzeAudio_Rejects(t *testing.T) {
	t.Parallel()

	e, _ := setupTestController(t, newFakePipeline())

	t.Run("missing file", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, uploadRequest(t, "other", []byte("data")))
		assertErrorResponse(t, rec, http.StatusBadRequest)
	})

	t.Run("not audio", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, uploadRequest(t, "file", []byte("definitely not a wav file")))
		resp := assertErrorResponse(t, rec, http.StatusBadRequest)
		assert.Contains(t, resp.Message, "WAV or FLAC")
	})
}

func TestAnalyzeAudio_PersistsResults(t *testing.T) {
	t.Parallel()

	ds := newTestDataStore(t)
	cls := classifier.Func(func(context.Context, []float32, int) []classifier.Detection {
		return []classifier.Detection{{Label: "alarm", Confidence: 0.8}}
	})
	e, _ := setupTestController(t, newFakePipeline(), WithDataStore(ds), WithClassifier(cls))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, uploadRequest(t, "file", stereoWAV(t)))
	require.Equal(t, http.StatusOK, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	alerts, err := ds.GetSoundAlerts(ctx, 10, 0, "")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "alarm", alerts[0].Sound)
}
