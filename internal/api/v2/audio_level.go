// internal/api/v2/audio_level.go
package api

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/labstack/echo/v4"

	"github.com/echolens-ai/echolens/internal/logger"
)

// Level stream configuration
const (
	levelStreamInterval     = 500 * time.Millisecond
	levelStreamMaxDuration  = 30 * time.Minute
	levelStreamWriteTimeout = 5 * time.Second

	// 10 connections per minute per client
	levelStreamRateLimit = 10.0 / 60.0
	levelStreamBurst     = 10

	levelStreamEndpoint = "/api/levels/stream"
)

// LevelsResponse is the body of GET /api/levels and of each stream message.
type LevelsResponse struct {
	Levels    []float64 `json:"levels"` // oldest first
	Current   float64   `json:"current"`
	Running   bool      `json:"running"`
	Timestamp time.Time `json:"timestamp"`
}

func (c *Controller) levels() LevelsResponse {
	levels := c.Pipeline.AudioLevels()
	resp := LevelsResponse{
		Levels:    levels,
		Running:   c.Pipeline.Status().Running,
		Timestamp: time.Now(),
	}
	if n := len(levels); n > 0 {
		resp.Current = levels[n-1]
	}
	return resp
}

// GetLevels handles GET /api/levels
func (c *Controller) GetLevels(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.levels())
}

// StreamLevels handles GET /api/levels/stream. It upgrades to a websocket
// and pushes the level history at a fixed interval until the client leaves,
// the maximum duration passes or the controller shuts down.
func (c *Controller) StreamLevels(ctx echo.Context) error {
	conn, err := websocket.Accept(ctx.Response(), ctx.Request(), &websocket.AcceptOptions{
		OriginPatterns: c.originPatterns(),
	})
	if err != nil {
		// Accept has already written the HTTP error
		c.logger.Debug("level stream upgrade failed", logger.Error(err), logger.String("ip", ctx.RealIP()))
		return nil
	}

	c.wg.Add(1)
	defer c.wg.Done()
	if c.metrics != nil {
		c.metrics.HTTP.WebSocketOpened()
		defer c.metrics.HTTP.WebSocketClosed()
	}

	streamCtx, cancel := context.WithTimeout(c.ctx, levelStreamMaxDuration)
	defer cancel()
	// CloseRead discards client messages and cancels on client close
	streamCtx = conn.CloseRead(streamCtx)

	c.logger.Debug("level stream opened", logger.String("ip", ctx.RealIP()))
	err = c.pushLevels(streamCtx, conn)

	if err != nil && websocket.CloseStatus(err) == -1 {
		c.logger.Debug("level stream write failed", logger.Error(err))
	}
	if c.ctx.Err() != nil {
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	} else {
		conn.Close(websocket.StatusNormalClosure, "stream ended")
	}
	c.logger.Debug("level stream closed", logger.String("ip", ctx.RealIP()))
	return nil
}

func (c *Controller) pushLevels(ctx context.Context, conn *websocket.Conn) error {
	ticker := time.NewTicker(levelStreamInterval)
	defer ticker.Stop()

	for {
		writeCtx, cancel := context.WithTimeout(ctx, levelStreamWriteTimeout)
		err := wsjson.Write(writeCtx, conn, c.levels())
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if c.metrics != nil {
			c.metrics.HTTP.RecordWebSocketMessage(levelStreamEndpoint)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// originPatterns converts the CORS origins into websocket origin patterns.
func (c *Controller) originPatterns() []string {
	if c.Settings == nil {
		return nil
	}
	var patterns []string
	for _, origin := range c.Settings.WebServer.AllowOrigins {
		if origin == "*" {
			return []string{"*"}
		}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			patterns = append(patterns, u.Host)
		}
	}
	return patterns
}
