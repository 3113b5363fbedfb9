// Package chat answers user messages as the EchoLens assistant.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/k3a/html2text"

	"github.com/echolens-ai/echolens/internal/detection"
	"github.com/echolens-ai/echolens/internal/llm"
	"github.com/echolens-ai/echolens/internal/logger"
)

// Reply sources.
const (
	SourceRemote   = detection.AnalysisRemote
	SourceFallback = detection.AnalysisFallback
)

// historyWindow is the number of previous messages sent with a request.
const historyWindow = 10

// EmotionContext is the user's current emotional state.
type EmotionContext struct {
	Emotion   string `json:"emotion"`
	Intensity string `json:"intensity,omitempty"`
}

// Request is a chat request.
type Request struct {
	Message   string          `json:"message"`
	Context   *EmotionContext `json:"context,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
}

// Response is a chat reply.
type Response struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	Source    string `json:"source"`
}

// Service answers chat messages remotely with a rule based fallback.
type Service struct {
	completer llm.Completer
	history   HistoryStore
	rules     RuleBased
	now       func() time.Time
	logger    logger.Logger
}

// NewService creates a chat service. A nil completer always uses the rules;
// a nil history store keeps no history.
func NewService(completer llm.Completer, history HistoryStore) *Service {
	return &Service{
		completer: completer,
		history:   history,
		now:       time.Now,
		logger:    GetLogger(),
	}
}

// Reply answers a message. A missing session id starts a new session.
func (s *Service) Reply(ctx context.Context, req Request) (Response, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return Response{}, ErrEmptyMessage
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	previous := s.loadHistory(ctx, sessionID)
	s.store(ctx, sessionID, RoleUser, message)

	resp := Response{SessionID: sessionID}
	if text, err := s.remote(ctx, message, req.Context, previous); err == nil {
		resp.Response, resp.Source = text, SourceRemote
	} else {
		if s.completer != nil {
			s.logger.Warn("remote chat failed, using rule based reply", logger.Error(err))
		}
		resp.Response, resp.Source = s.rules.Reply(message, req.Context), SourceFallback
	}

	s.store(ctx, sessionID, RoleAssistant, resp.Response)
	return resp, nil
}

// History returns the stored messages of a session.
func (s *Service) History(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.History(ctx, sessionID, limit)
}

// ClearHistory removes the messages of a session, or of all sessions when empty.
func (s *Service) ClearHistory(ctx context.Context, sessionID string) error {
	if s.history == nil {
		return nil
	}
	return s.history.ClearHistory(ctx, sessionID)
}

func (s *Service) remote(ctx context.Context, message string, emo *EmotionContext, previous []Message) (string, error) {
	if s.completer == nil {
		return "", fmt.Errorf("no language model configured")
	}

	msgs := make([]llm.Message, 0, len(previous)+1)
	for _, m := range previous {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: RoleUser, Content: message})

	reply, err := s.completer.Complete(ctx, llm.Request{
		System:    systemPrompt(emo),
		Messages:  msgs,
		MaxTokens: 300,
	})
	if err != nil {
		return "", err
	}

	text := strings.TrimSpace(html2text.HTML2Text(reply))
	if text == "" {
		return "", llm.ErrEmptyResponse
	}
	return text, nil
}

func systemPrompt(emo *EmotionContext) string {
	var b strings.Builder
	b.WriteString("You are EchoLens.AI, a sound and emotion translator designed to help Deaf and hard-of-hearing users. ")
	b.WriteString("You can detect environmental sounds and emotional tones in speech. ")
	b.WriteString("Please respond to the user's messages in a helpful, conversational and empathetic way. Limit your reply to 2-3 sentences.")
	if emo != nil && emo.Emotion != "" {
		intensity := emo.Intensity
		if intensity == "" {
			intensity = "medium"
		}
		fmt.Fprintf(&b, "\nThe user's current emotional state appears to be %s with %s intensity.", emo.Emotion, intensity)
	}
	return b.String()
}

func (s *Service) loadHistory(ctx context.Context, sessionID string) []Message {
	if s.history == nil {
		return nil
	}
	msgs, err := s.history.History(ctx, sessionID, historyWindow)
	if err != nil {
		s.logger.Warn("failed to load chat history", logger.String("session_id", sessionID), logger.Error(err))
		return nil
	}
	return msgs
}

func (s *Service) store(ctx context.Context, sessionID, role, content string) {
	if s.history == nil {
		return
	}
	msg := Message{Role: role, Content: content, Timestamp: s.now()}
	if err := s.history.AppendMessage(ctx, sessionID, msg); err != nil {
		s.logger.Warn("failed to store chat message", logger.String("session_id", sessionID), logger.Error(err))
	}
}
