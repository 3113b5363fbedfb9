// internal/api/v2/control.go
package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/pipeline"
)

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Status          string          `json:"status"` // online
	AudioProcessing string          `json:"audio_processing"`
	Pipeline        pipeline.Status `json:"pipeline"`
	Robot           any             `json:"robot,omitempty"`
	Timestamp       time.Time       `json:"timestamp"`
}

// ModeRequest is the body of POST /api/mode.
type ModeRequest struct {
	Mode string `json:"mode"`
}

// ControlResult represents the result of a control action
type ControlResult struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Action    string          `json:"action"`
	Status    pipeline.Status `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
}

// Control actions
const (
	ActionStart = "start"
	ActionStop  = "stop"
	ActionMode  = "mode"
)

// GetStatus handles GET /api/status
func (c *Controller) GetStatus(ctx echo.Context) error {
	st := c.Pipeline.Status()
	processing := "inactive"
	if st.Running {
		processing = "active"
	}
	resp := StatusResponse{
		Status:          "online",
		AudioProcessing: processing,
		Pipeline:        st,
		Timestamp:       time.Now(),
	}
	if c.Robot != nil {
		resp.Robot = c.Robot.Status()
	}
	return ctx.JSON(http.StatusOK, resp)
}

// SetMode handles POST /api/mode. Requests inside the mode cooldown get 429.
func (c *Controller) SetMode(ctx echo.Context) error {
	var req ModeRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	mode, err := pipeline.ParseMode(req.Mode)
	if err != nil {
		return c.HandleError(ctx, err, "Mode must be live or demo", http.StatusBadRequest)
	}

	if err := c.Pipeline.SetMode(ctx.Request().Context(), mode); err != nil {
		if errors.Is(err, pipeline.ErrThrottled) {
			ctx.Response().Header().Set("Retry-After", "2")
			return c.HandleError(ctx, err, "Mode changed too recently, try again shortly", http.StatusTooManyRequests)
		}
		return c.HandleError(ctx, err, "Failed to switch mode", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, ControlResult{
		Success:   true,
		Message:   "Mode set to " + string(mode),
		Action:    ActionMode,
		Status:    c.Pipeline.Status(),
		Timestamp: time.Now(),
	})
}

// StartPipeline handles POST /api/start
func (c *Controller) StartPipeline(ctx echo.Context) error {
	result, err := c.Pipeline.Start(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to start audio processing", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, ControlResult{
		Success:   true,
		Message:   result,
		Action:    ActionStart,
		Status:    c.Pipeline.Status(),
		Timestamp: time.Now(),
	})
}

// StopPipeline handles POST /api/stop
func (c *Controller) StopPipeline(ctx echo.Context) error {
	result, err := c.Pipeline.Stop(ctx.Request().Context())
	if err != nil {
		return c.HandleError(ctx, err, "Failed to stop audio processing", http.StatusInternalServerError)
	}
	return ctx.JSON(http.StatusOK, ControlResult{
		Success:   true,
		Message:   result,
		Action:    ActionStop,
		Status:    c.Pipeline.Status(),
		Timestamp: time.Now(),
	})
}
