// Package speech transcribes short audio buffers with a remote recognizer.
package speech

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/option"
	gspeech "google.golang.org/api/speech/v1"

	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/logger"
	"github.com/echolens-ai/echolens/internal/observability/metrics"
)

// Result is a recognised utterance.
type Result struct {
	Text       string
	Confidence float64
}

// Recognizer transcribes mono audio. It returns ErrNoSpeech when nothing was
// recognised and an error matching ErrService when the service failed.
type Recognizer interface {
	Recognize(ctx context.Context, mono []float32, sampleRate int) (Result, error)
}

const opRecognize = "recognize"

// Config configures the Google recognizer.
type Config struct {
	APIKey   string
	Endpoint string // optional, defaults to the public endpoint
	Language string
	Timeout  time.Duration

	HTTPClient *http.Client     // optional, replaces the default transport
	Metrics    metrics.Recorder // optional
}

// Google recognizes speech with the Cloud Speech-to-Text v1 REST API.
type Google struct {
	svc      *gspeech.Service
	language string
	timeout  time.Duration
	metrics  metrics.Recorder
	logger   logger.Logger
}

// NewGoogle creates a Google recognizer.
func NewGoogle(ctx context.Context, cfg Config) (*Google, error) {
	if cfg.APIKey == "" && cfg.HTTPClient == nil {
		return nil, errors.Newf("speech API key not configured").
			Component(ComponentSpeech).
			Category(errors.CategoryConfiguration).
			Build()
	}

	opts := []option.ClientOption{}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	} else {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := gspeech.NewService(ctx, opts...)
	if err != nil {
		return nil, errors.New(fmt.Errorf("create speech client: %w", err)).
			Component(ComponentSpeech).
			Category(errors.CategoryConfiguration).
			Build()
	}

	language := cfg.Language
	if language == "" {
		language = "en-US"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	rec := cfg.Metrics
	if rec == nil {
		rec = metrics.NopRecorder{}
	}

	return &Google{svc: svc, language: language, timeout: timeout, metrics: rec, logger: GetLogger()}, nil
}

// Recognize sends the buffer as LINEAR16 and returns the best alternative.
func (g *Google) Recognize(ctx context.Context, mono []float32, sampleRate int) (Result, error) {
	if len(mono) == 0 {
		return Result{}, ErrNoSpeech
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := &gspeech.RecognizeRequest{
		Config: &gspeech.RecognitionConfig{
			Encoding:          "LINEAR16",
			SampleRateHertz:   int64(sampleRate),
			LanguageCode:      g.language,
			AudioChannelCount: 1,
		},
		Audio: &gspeech.RecognitionAudio{
			Content: base64.StdEncoding.EncodeToString(encodeLinear16(mono)),
		},
	}

	start := time.Now()
	resp, err := g.svc.Speech.Recognize(req).Context(ctx).Do()
	g.metrics.RecordDuration(opRecognize, time.Since(start).Seconds())
	if err != nil {
		g.metrics.RecordOperation(opRecognize, metrics.StatusError)
		if ctx.Err() != nil {
			g.metrics.RecordError(opRecognize, "timeout")
		} else {
			g.metrics.RecordError(opRecognize, "service")
		}
		return Result{}, errors.New(fmt.Errorf("%w: %w", ErrService, err)).
			Component(ComponentSpeech).
			Category(errors.CategoryRemoteService).
			Timing("speech-recognize", time.Since(start)).
			Build()
	}

	best := Result{}
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		alt := r.Alternatives[0]
		text := strings.TrimSpace(alt.Transcript)
		if text == "" {
			continue
		}
		if best.Text != "" {
			best.Text += " "
		}
		best.Text += text
		best.Confidence = max(best.Confidence, alt.Confidence)
	}
	if best.Text == "" {
		g.metrics.RecordOperation(opRecognize, "no_speech")
		return Result{}, ErrNoSpeech
	}
	g.metrics.RecordOperation(opRecognize, metrics.StatusSuccess)

	g.logger.Debug("speech recognized",
		logger.Int("chars", len(best.Text)),
		logger.Float64("confidence", best.Confidence),
		logger.Duration("elapsed", time.Since(start)))
	return best, nil
}

// encodeLinear16 converts float samples to 16-bit little-endian PCM.
func encodeLinear16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := max(-1, min(1, s)) * 32767
		u := uint16(int16(v))
		out[i*2] = byte(u)
		out[i*2+1] = byte(u >> 8)
	}
	return out
}
