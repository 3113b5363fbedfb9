package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echolens-ai/echolens/internal/conf"
	"github.com/echolens-ai/echolens/internal/detection"
	"github.com/echolens-ai/echolens/internal/pipeline"
	"github.com/echolens-ai/echolens/internal/preferences"
)

// fakePipeline implements PipelineService over real sinks.
type fakePipeline struct {
	mu       sync.Mutex
	running  bool
	mode     pipeline.Mode
	modeErr  error
	startErr error
	cleared  int
	levels   []float64

	transcriptions *detection.Sink[detection.Transcription]
	alerts         *detection.Sink[detection.SoundAlert]
	prefs          *preferences.Store
}

func newFakePipeline() *fakePipeline {
	return &fakePipeline{
		mode:           pipeline.ModeDemo,
		transcriptions: detection.NewSink[detection.Transcription](100, 50),
		alerts:         detection.NewSink[detection.SoundAlert](100, 50),
		prefs:          preferences.NewStore(preferences.Defaults(), nil),
	}
}

func (p *fakePipeline) Status() pipeline.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	state := pipeline.StateStopped
	if p.running {
		state = pipeline.StateRunning
	}
	return pipeline.Status{
		State:          state,
		Running:        p.running,
		Mode:           p.mode,
		Transcriptions: p.transcriptions.Len(),
		SoundAlerts:    p.alerts.Len(),
		Preferences:    p.prefs.Get(),
	}
}

func (p *fakePipeline) SetMode(_ context.Context, mode pipeline.Mode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.modeErr != nil {
		return p.modeErr
	}
	p.mode = mode
	p.running = true
	return nil
}

func (p *fakePipeline) Start(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startErr != nil {
		return "", p.startErr
	}
	if p.running {
		return pipeline.StatusAlreadyRunning, nil
	}
	p.running = true
	return pipeline.StatusStarted, nil
}

func (p *fakePipeline) Stop(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return pipeline.StatusNotRunning, nil
	}
	p.running = false
	return pipeline.StatusStopped, nil
}

func (p *fakePipeline) AudioLevels() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]float64(nil), p.levels...)
}

func (p *fakePipeline) Transcriptions(limit, page int, emotion string) detection.Page[detection.Transcription] {
	var filter func(detection.Transcription) bool
	if emotion != "" {
		filter = func(t detection.Transcription) bool { return t.Emotion == emotion }
	}
	return p.transcriptions.Query(limit, page, filter)
}

func (p *fakePipeline) SoundAlerts(limit, page int, priority detection.Priority) detection.Page[detection.SoundAlert] {
	var filter func(detection.SoundAlert) bool
	if priority != "" {
		filter = func(a detection.SoundAlert) bool { return a.Priority == priority }
	}
	return p.alerts.Query(limit, page, filter)
}

func (p *fakePipeline) ClearData() {
	p.transcriptions.Clear()
	p.alerts.Clear()
	p.mu.Lock()
	p.cleared++
	p.mu.Unlock()
}

func (p *fakePipeline) Preferences() *preferences.Store { return p.prefs }

func testSettings() *conf.Settings {
	s := &conf.Settings{}
	s.Version = "test"
	s.WebServer.AllowOrigins = []string{"*"}
	s.Audio.AlertThreshold = 0.3
	return s
}

// setupTestController builds a controller with routes on a fresh echo instance.
func setupTestController(t *testing.T, p *fakePipeline, opts ...Option) (*echo.Echo, *Controller) {
	t.Helper()
	e := echo.New()
	c := New(e, testSettings(), p, opts...)
	t.Cleanup(c.Shutdown)
	return e, c
}

// doRequest sends a request through the router and returns the recorder.
func doRequest(t *testing.T, e *echo.Echo, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func assertErrorResponse(t *testing.T, rec *httptest.ResponseRecorder, code int) ErrorResponse {
	t.Helper()
	require.Equal(t, code, rec.Code, rec.Body.String())
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, code, resp.Code)
	assert.Len(t, resp.CorrelationID, 8)
	assert.NotEmpty(t, resp.Message)
	return resp
}

func mustTranscription(t *testing.T, text, emotion string, ts time.Time) detection.Transcription {
	t.Helper()
	tr, err := detection.NewTranscription(text, 0.9,
		&detection.EmotionAnalysis{Emotion: emotion, Confidence: 0.8, Source: detection.AnalysisRemote},
		detection.SourceDemo, ts)
	require.NoError(t, err)
	return tr
}

func mustAlert(t *testing.T, sound string, ts time.Time) detection.SoundAlert {
	t.Helper()
	a, err := detection.NewSoundAlert(sound, 0.9, detection.AlertOptions{Direction: "right", Source: detection.SourceDemo}, ts)
	require.NoError(t, err)
	return a
}

func TestNewErrorResponse(t *testing.T) {
	t.Parallel()

	resp := NewErrorResponse(nil, "No text provided", http.StatusBadRequest)
	assert.Equal(t, "No text provided", resp.Error)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Len(t, resp.CorrelationID, 8)

	other := NewErrorResponse(assert.AnError, "failed", http.StatusInternalServerError)
	assert.Equal(t, assert.AnError.Error(), other.Error)
	assert.NotEqual(t, resp.CorrelationID, other.CorrelationID)
}

func TestParsePagination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		query     string
		wantLimit int
		wantPage  int
	}{
		{"", DefaultLimit, 1},
		{"limit=5&page=3", 5, 3},
		{"limit=500", MaxLimit, 1},
		{"limit=-1&page=0", DefaultLimit, 1},
		{"limit=abc&page=xyz", DefaultLimit, 1},
	}
	e := echo.New()
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, http.NoBody)
			ctx := e.NewContext(req, httptest.NewRecorder())
			limit, page := parsePagination(ctx)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantPage, page)
		})
	}
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	e, _ := setupTestController(t, newFakePipeline())
	rec := doRequest(t, e, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[HealthResponse](t, rec)
	assert.Equal(t, HealthHealthy, resp.Status)
	assert.Equal(t, "test", resp.Version)
	assert.Equal(t, "disconnected", resp.GeminiAPI)
	assert.Equal(t, dbNotConfigured, resp.DatabaseStatus)
	assert.Equal(t, string(pipeline.StateStopped), resp.Pipeline)
}
