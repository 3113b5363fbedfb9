// Package llm talks to a generative language model through an OpenAI
// compatible chat completions endpoint. Gemini exposes one at
// https://generativelanguage.googleapis.com/v1beta/openai/.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
	"golang.org/x/time/rate"

	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/logger"
	"github.com/echolens-ai/echolens/internal/observability/metrics"
)

// Connection states reported by Status.
const (
	StatusConnected    = "connected"
	StatusError        = "error"
	StatusDisconnected = "disconnected"
)

// Message is one chat message.
type Message struct {
	Role    string // system, user or assistant
	Content string
}

// Request is a completion request.
type Request struct {
	System      string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

const opComplete = "complete"

// errorType labels a failed call for metrics.
func errorType(ctx context.Context) string {
	if ctx.Err() != nil {
		return "timeout"
	}
	return "service"
}

// Completer produces a completion for a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
	Status() string
}

// Config configures a Client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64       // used when a request leaves it zero
	Timeout     time.Duration // per request
	RateLimit   float64       // requests per second, 0 disables limiting

	HTTPClient *http.Client     // optional
	Metrics    metrics.Recorder // optional
}

// Client is a rate limited chat completion client.
type Client struct {
	client      oai.Client
	model       string
	temperature float64
	timeout     time.Duration
	limiter     *rate.Limiter
	lastOK      atomic.Int32 // 0 unknown, 1 ok, 2 failed
	metrics     metrics.Recorder
	logger      logger.Logger
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.Newf("llm API key not configured").
			Component(ComponentLLM).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if cfg.Model == "" {
		return nil, errors.Newf("llm model not configured").
			Component(ComponentLLM).
			Category(errors.CategoryConfiguration).
			Build()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	c := &Client{
		client:      oai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     timeout,
		metrics:     cfg.Metrics,
		logger:      GetLogger(),
	}
	if c.metrics == nil {
		c.metrics = metrics.NopRecorder{}
	}
	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, int(cfg.RateLimit)))
	}
	return c, nil
}

// Complete returns the text of the first choice. It fails fast with
// ErrRateLimited instead of waiting for the limiter.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	if c.limiter != nil && !c.limiter.Allow() {
		c.metrics.RecordError(opComplete, "throttled")
		return "", ErrRateLimited
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := c.buildParams(req)
	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	c.metrics.RecordDuration(opComplete, time.Since(start).Seconds())
	if err != nil {
		c.lastOK.Store(2)
		c.metrics.RecordOperation(opComplete, metrics.StatusError)
		c.metrics.RecordError(opComplete, errorType(ctx))
		return "", errors.New(fmt.Errorf("%w: chat completion: %w", ErrService, err)).
			Component(ComponentLLM).
			Category(errors.CategoryRemoteService).
			Context("model", c.model).
			Timing("chat-completion", time.Since(start)).
			Build()
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		c.lastOK.Store(2)
		c.metrics.RecordOperation(opComplete, metrics.StatusError)
		c.metrics.RecordError(opComplete, "empty_response")
		return "", ErrEmptyResponse
	}

	c.lastOK.Store(1)
	c.metrics.RecordOperation(opComplete, metrics.StatusSuccess)
	c.logger.Debug("completion received",
		logger.String("model", c.model),
		logger.Int64("total_tokens", resp.Usage.TotalTokens),
		logger.Duration("elapsed", time.Since(start)))
	return resp.Choices[0].Message.Content, nil
}

// Status reports the outcome of the most recent call.
func (c *Client) Status() string {
	if c == nil {
		return StatusDisconnected
	}
	if c.lastOK.Load() == 2 {
		return StatusError
	}
	return StatusConnected
}

func (c *Client) buildParams(req Request) oai.ChatCompletionNewParams {
	var messages []oai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, oai.SystemMessage(req.System))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			messages = append(messages, oai.SystemMessage(m.Content))
		case "assistant":
			messages = append(messages, oai.AssistantMessage(m.Content))
		default:
			messages = append(messages, oai.UserMessage(m.Content))
		}
	}

	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: messages,
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}
	if temperature != 0 {
		params.Temperature = param.NewOpt(temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(req.MaxTokens))
	}
	return params
}

// StatusOf returns the status of a possibly nil completer.
func StatusOf(c Completer) string {
	if c == nil {
		return StatusDisconnected
	}
	return c.Status()
}
