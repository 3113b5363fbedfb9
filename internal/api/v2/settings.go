// internal/api/v2/settings.go
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/preferences"
)

// PreferencesUpdateResponse is the body of PUT /api/preferences.
type PreferencesUpdateResponse struct {
	Success     bool                    `json:"success"`
	Preferences preferences.Preferences `json:"preferences"`
}

// GetPreferences handles GET /api/preferences
func (c *Controller) GetPreferences(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.Pipeline.Preferences().Get())
}

// UpdatePreferences handles PUT /api/preferences. The body is a partial
// update; unknown keys are ignored.
func (c *Controller) UpdatePreferences(ctx echo.Context) error {
	var patch preferences.Patch
	if err := ctx.Bind(&patch); err != nil {
		return c.HandleError(ctx, err, "Invalid preferences body", http.StatusBadRequest)
	}

	prefs, err := c.Pipeline.Preferences().Update(ctx.Request().Context(), patch)
	if err != nil {
		code := errors.HTTPStatus(err, http.StatusInternalServerError)
		if code == http.StatusBadRequest {
			return c.HandleError(ctx, err, "Invalid preference value", code)
		}
		return c.HandleError(ctx, err, "Failed to save preferences", code)
	}
	return ctx.JSON(http.StatusOK, PreferencesUpdateResponse{Success: true, Preferences: prefs})
}
