// internal/api/v2/chat.go
package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/echolens-ai/echolens/internal/chat"
	"github.com/echolens-ai/echolens/internal/errors"
)

// defaultHistoryLimit is the number of messages returned by GET /api/chat/history.
const defaultHistoryLimit = 50

// ChatHistoryResponse is the body of GET /api/chat/history.
type ChatHistoryResponse struct {
	SessionID string         `json:"session_id"`
	Messages  []chat.Message `json:"messages"`
}

// ChatResponse adds the success flag to a chat reply.
type ChatResponse struct {
	Success bool `json:"success"`
	chat.Response
}

// PostChat handles POST /api/chat
func (c *Controller) PostChat(ctx echo.Context) error {
	if c.Chat == nil {
		return c.HandleError(ctx, nil, "Chat is not available", http.StatusServiceUnavailable)
	}
	var req chat.Request
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	resp, err := c.Chat.Reply(ctx.Request().Context(), req)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) {
			return c.HandleError(ctx, err, "No message provided", http.StatusBadRequest)
		}
		return c.HandleError(ctx, err, "Failed to generate a reply", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, ChatResponse{Success: true, Response: resp})
}

// GetChatHistory handles GET /api/chat/history?session_id&limit
func (c *Controller) GetChatHistory(ctx echo.Context) error {
	if c.Chat == nil {
		return c.HandleError(ctx, nil, "Chat is not available", http.StatusServiceUnavailable)
	}
	sessionID := strings.TrimSpace(ctx.QueryParam("session_id"))
	if sessionID == "" {
		return c.HandleError(ctx, nil, "session_id is required", http.StatusBadRequest)
	}
	limit, err := strconv.Atoi(ctx.QueryParam("limit"))
	if err != nil || limit <= 0 {
		limit = defaultHistoryLimit
	}

	msgs, err := c.Chat.History(ctx.Request().Context(), sessionID, limit)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load chat history", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, ChatHistoryResponse{SessionID: sessionID, Messages: nonNil(msgs)})
}

// DeleteChatHistory handles DELETE /api/chat/history. Without session_id
// every session is cleared.
func (c *Controller) DeleteChatHistory(ctx echo.Context) error {
	if c.Chat == nil {
		return c.HandleError(ctx, nil, "Chat is not available", http.StatusServiceUnavailable)
	}
	sessionID := strings.TrimSpace(ctx.QueryParam("session_id"))
	if err := c.Chat.ClearHistory(ctx.Request().Context(), sessionID); err != nil {
		return c.HandleError(ctx, err, "Failed to clear chat history", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, map[string]any{"success": true, "session_id": sessionID})
}
