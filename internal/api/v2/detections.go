// internal/api/v2/detections.go
package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/echolens-ai/echolens/internal/detection"
)

// TranscriptionsResponse is the body of GET /api/transcriptions.
type TranscriptionsResponse struct {
	Total          int                       `json:"total"`
	Page           int                       `json:"page"`
	Limit          int                       `json:"limit"`
	History        bool                      `json:"history,omitempty"`
	Transcriptions []detection.Transcription `json:"transcriptions"`
}

// SoundAlertsResponse is the body of GET /api/sounds.
type SoundAlertsResponse struct {
	Total       int                    `json:"total"`
	Page        int                    `json:"page"`
	Limit       int                    `json:"limit"`
	History     bool                   `json:"history,omitempty"`
	SoundAlerts []detection.SoundAlert `json:"soundAlerts"`
}

// GetTranscriptions handles GET /api/transcriptions?limit&page&emotion.
// With history=true the page is read from the datastore instead of the
// in-memory results; total is then the length of the returned page.
func (c *Controller) GetTranscriptions(ctx echo.Context) error {
	limit, page := parsePagination(ctx)
	emotion := strings.ToLower(strings.TrimSpace(ctx.QueryParam("emotion")))

	if !queryBool(ctx, "history") {
		p := c.Pipeline.Transcriptions(limit, page, emotion)
		return ctx.JSON(http.StatusOK, TranscriptionsResponse{
			Total: p.Total, Page: p.Page, Limit: p.Limit,
			Transcriptions: nonNil(p.Items),
		})
	}

	if c.DS == nil {
		return c.HandleError(ctx, nil, "History requires a configured datastore", http.StatusServiceUnavailable)
	}
	key := fmt.Sprintf("transcriptions:%d:%d:%s", limit, page, emotion)
	if cached, ok := c.queryCache.Get(key); ok {
		return ctx.JSON(http.StatusOK, cached)
	}
	items, err := c.DS.GetTranscriptions(ctx.Request().Context(), limit, (page-1)*limit, emotion)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load transcriptions", http.StatusInternalServerError)
	}
	resp := TranscriptionsResponse{
		Total: len(items), Page: page, Limit: limit, History: true,
		Transcriptions: nonNil(items),
	}
	c.queryCache.SetDefault(key, resp)
	return ctx.JSON(http.StatusOK, resp)
}

// GetSoundAlerts handles GET /api/sounds?limit&page&priority
func (c *Controller) GetSoundAlerts(ctx echo.Context) error {
	limit, page := parsePagination(ctx)

	var priority detection.Priority
	if raw := strings.TrimSpace(ctx.QueryParam("priority")); raw != "" {
		p, ok := detection.ParsePriority(raw)
		if !ok {
			return c.HandleError(ctx, nil, "Priority must be high, medium or low", http.StatusBadRequest)
		}
		priority = p
	}

	if !queryBool(ctx, "history") {
		p := c.Pipeline.SoundAlerts(limit, page, priority)
		return ctx.JSON(http.StatusOK, SoundAlertsResponse{
			Total: p.Total, Page: p.Page, Limit: p.Limit,
			SoundAlerts: nonNil(p.Items),
		})
	}

	if c.DS == nil {
		return c.HandleError(ctx, nil, "History requires a configured datastore", http.StatusServiceUnavailable)
	}
	key := fmt.Sprintf("sounds:%d:%d:%s", limit, page, priority)
	if cached, ok := c.queryCache.Get(key); ok {
		return ctx.JSON(http.StatusOK, cached)
	}
	items, err := c.DS.GetSoundAlerts(ctx.Request().Context(), limit, (page-1)*limit, priority)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to load sound alerts", http.StatusInternalServerError)
	}
	resp := SoundAlertsResponse{
		Total: len(items), Page: page, Limit: limit, History: true,
		SoundAlerts: nonNil(items),
	}
	c.queryCache.SetDefault(key, resp)
	return ctx.JSON(http.StatusOK, resp)
}

// ClearData handles DELETE /api/data. The in-memory results are always
// cleared; stored results are cleared when a datastore is configured.
func (c *Controller) ClearData(ctx echo.Context) error {
	c.Pipeline.ClearData()
	defer c.queryCache.Flush()

	if c.DS != nil {
		if err := c.DS.ClearResults(ctx.Request().Context()); err != nil {
			return c.HandleError(ctx, err, "In-memory results cleared, but stored results could not be deleted",
				http.StatusInternalServerError)
		}
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"success":   true,
		"message":   "All transcriptions and sound alerts cleared",
		"timestamp": time.Now(),
	})
}

// nonNil keeps empty results encoded as [] rather than null.
func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
