// internal/api/v2/robot.go
package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/echolens-ai/echolens/internal/robot"
)

// RobotReactionRequest is the body of POST /api/robot/react.
type RobotReactionRequest struct {
	Emotion    string   `json:"emotion"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// RobotReactionResponse is returned after a manual reaction.
type RobotReactionResponse struct {
	Success  bool          `json:"success"`
	Reaction robot.Command `json:"reaction"`
	Status   robot.Status  `json:"status"`
}

// GetRobot handles GET /api/robot
func (c *Controller) GetRobot(ctx echo.Context) error {
	if c.Robot == nil {
		return ctx.JSON(http.StatusOK, robot.Status{
			Enabled:  false,
			State:    robot.StateIdle,
			Emotions: robot.Emotions(),
		})
	}
	return ctx.JSON(http.StatusOK, c.Robot.Status())
}

// PostRobotReaction handles POST /api/robot/react
func (c *Controller) PostRobotReaction(ctx echo.Context) error {
	if c.Robot == nil {
		return c.HandleError(ctx, nil, "Robot is not enabled", http.StatusServiceUnavailable)
	}
	var req RobotReactionRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}
	emotion := strings.TrimSpace(req.Emotion)
	if emotion == "" {
		return c.HandleError(ctx, nil, "No emotion provided", http.StatusBadRequest)
	}
	confidence := 1.0
	if req.Confidence != nil {
		if *req.Confidence < 0 || *req.Confidence > 1 {
			return c.HandleError(ctx, nil, "Confidence must be between 0 and 1", http.StatusBadRequest)
		}
		confidence = *req.Confidence
	}

	cmd, err := c.Robot.React(ctx.Request().Context(), emotion, confidence)
	if err != nil {
		return c.HandleError(ctx, err, "Robot reaction failed", http.StatusBadGateway)
	}
	return ctx.JSON(http.StatusOK, RobotReactionResponse{Success: true, Reaction: cmd, Status: c.Robot.Status()})
}
