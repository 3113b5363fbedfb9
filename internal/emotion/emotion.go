// Package emotion classifies the emotion expressed in a piece of text.
//
// Analysis is delegated to a generative language model; any error, timeout,
// empty reply, unknown label or malformed JSON falls back to a deterministic
// keyword scorer so callers always receive a usable result.
package emotion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/patrickmn/go-cache"

	"github.com/echolens-ai/echolens/internal/detection"
	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/llm"
	"github.com/echolens-ai/echolens/internal/logger"
)

// Result is an emotion classification.
type Result struct {
	Emotion     string  `json:"emotion"`
	Confidence  float64 `json:"confidence"`
	Intensity   float64 `json:"intensity"`
	Explanation string  `json:"explanation"`
	Source      string  `json:"source"` // remote or fallback
}

// Analysis converts the result into the form attached to transcriptions.
func (r Result) Analysis() *detection.EmotionAnalysis {
	return &detection.EmotionAnalysis{
		Emotion:     r.Emotion,
		Confidence:  r.Confidence,
		Intensity:   r.Intensity,
		Explanation: r.Explanation,
		Source:      r.Source,
	}
}

// Analyzer classifies text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) Result
}

// maxCacheItems bounds the result cache before expired entries are purged.
const maxCacheItems = 1000

// Service analyzes emotions remotely with a keyword fallback.
type Service struct {
	completer llm.Completer // nil disables remote analysis
	cache     *cache.Cache
	logger    logger.Logger
}

// NewService creates an analyzer. A nil completer always uses the fallback.
// A positive cacheTTL caches remote results per text.
func NewService(completer llm.Completer, cacheTTL time.Duration) *Service {
	s := &Service{completer: completer, logger: GetLogger()}
	if cacheTTL > 0 {
		// no janitor goroutine, expired items are purged on insert
		s.cache = cache.New(cacheTTL, 0)
	}
	return s
}

// Analyze returns the remote classification or, on any failure, the keyword fallback.
func (s *Service) Analyze(ctx context.Context, text string) Result {
	text = strings.TrimSpace(text)
	if text == "" {
		return Fallback(text)
	}
	if s.completer == nil {
		return Fallback(text)
	}

	key := strings.ToLower(text)
	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			return cached.(Result)
		}
	}

	res, err := s.remote(ctx, text)
	if err != nil {
		if !errors.Is(err, llm.ErrRateLimited) {
			s.logger.Warn("remote emotion analysis failed, using keyword fallback", logger.Error(err))
		}
		return Fallback(text)
	}

	if s.cache != nil {
		if s.cache.ItemCount() >= maxCacheItems {
			s.cache.DeleteExpired()
		}
		s.cache.SetDefault(key, res)
	}
	return res
}

func (s *Service) remote(ctx context.Context, text string) (Result, error) {
	reply, err := s.completer.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: "user", Content: fmt.Sprintf("Text: %q", text)}},
		Temperature: 0.2,
		MaxTokens:   200,
	})
	if err != nil {
		return Result{}, errors.New(fmt.Errorf("%w: %w", ErrService, err)).
			Component(ComponentEmotion).
			Category(errors.CategoryRemoteService).
			Build()
	}
	return ParseReply(reply)
}

var systemPrompt = "Analyze the emotion expressed in the text. Choose exactly one emotion from this list: " +
	strings.Join(detection.Emotions, ", ") + ". " +
	`Respond only with JSON of the form {"emotion": "<emotion>", "confidence": <0-1>, "intensity": <0-1>, "explanation": "<one short sentence>"}.`

// ParseReply extracts a result from a model reply. Replies wrapped in
// markdown code fences are accepted.
func ParseReply(reply string) (Result, error) {
	body := stripFences(reply)

	obj, err := jason.NewObjectFromBytes([]byte(body))
	if err != nil {
		return Result{}, malformed("reply is not a JSON object", err)
	}

	label, err := obj.GetString("emotion")
	if err != nil {
		return Result{}, malformed("missing emotion", err)
	}
	label = strings.ToLower(strings.TrimSpace(label))
	if !detection.IsEmotion(label) {
		return Result{}, malformed(fmt.Sprintf("unknown emotion %q", label), nil)
	}

	confidence, err := obj.GetFloat64("confidence")
	if err != nil {
		return Result{}, malformed("missing confidence", err)
	}
	if confidence < 0 || confidence > 1 {
		return Result{}, malformed(fmt.Sprintf("confidence %g out of range", confidence), nil)
	}

	intensity, err := obj.GetFloat64("intensity")
	if err != nil {
		intensity = confidence * intensityFactor
	}
	intensity = max(0, min(1, intensity))

	explanation, _ := obj.GetString("explanation")

	return Result{
		Emotion:     label,
		Confidence:  confidence,
		Intensity:   intensity,
		Explanation: strings.TrimSpace(explanation),
		Source:      detection.AnalysisRemote,
	}, nil
}

func malformed(reason string, cause error) error {
	err := fmt.Errorf("%w: %s", ErrMalformedResponse, reason)
	if cause != nil {
		err = fmt.Errorf("%w: %s: %w", ErrMalformedResponse, reason, cause)
	}
	return errors.New(err).
		Component(ComponentEmotion).
		Category(errors.CategoryMalformedResponse).
		Build()
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
