package chat

import (
	"context"
	"sync"
	"time"
)

// Roles of stored messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one stored chat message.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryStore keeps chat messages per session.
type HistoryStore interface {
	AppendMessage(ctx context.Context, sessionID string, msg Message) error
	History(ctx context.Context, sessionID string, limit int) ([]Message, error)
	ClearHistory(ctx context.Context, sessionID string) error
}

// MemoryHistory is an in-memory HistoryStore bounded per session.
type MemoryHistory struct {
	mu       sync.Mutex
	sessions map[string][]Message
	max      int
}

// NewMemoryHistory keeps at most maxPerSession messages per session.
func NewMemoryHistory(maxPerSession int) *MemoryHistory {
	if maxPerSession <= 0 {
		maxPerSession = 100
	}
	return &MemoryHistory{sessions: make(map[string][]Message), max: maxPerSession}
}

// AppendMessage stores a message, evicting the oldest beyond the bound.
func (h *MemoryHistory) AppendMessage(_ context.Context, sessionID string, msg Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	msgs := append(h.sessions[sessionID], msg)
	if len(msgs) > h.max {
		msgs = append([]Message(nil), msgs[len(msgs)-h.max:]...)
	}
	h.sessions[sessionID] = msgs
	return nil
}

// History returns up to limit of the most recent messages, oldest first.
// A limit below one returns all of them.
func (h *MemoryHistory) History(_ context.Context, sessionID string, limit int) ([]Message, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	msgs := h.sessions[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return append([]Message(nil), msgs...), nil
}

// ClearHistory removes a session, or all sessions when sessionID is empty.
func (h *MemoryHistory) ClearHistory(_ context.Context, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessionID == "" {
		clear(h.sessions)
		return nil
	}
	delete(h.sessions, sessionID)
	return nil
}
