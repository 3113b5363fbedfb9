package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + levelStreamEndpoint
}

func TestStreamLevels(t *testing.T) {
	t.Parallel()

	p := newFakePipeline()
	p.levels = []float64{0.2, 0.5}
	p.running = true

	e := echo.New()
	c := New(e, testSettings(), p)
	srv := httptest.NewServer(e)
	defer srv.Close()
	defer c.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, streamURL(srv), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var msg LevelsResponse
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, []float64{0.2, 0.5}, msg.Levels)
	assert.InDelta(t, 0.5, msg.Current, 1e-9)
	assert.True(t, msg.Running)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "done"))
}

func TestStreamLevels_ClosedOnShutdown(t *testing.T) {
	t.Parallel()

	e := echo.New()
	c := New(e, testSettings(), newFakePipeline())
	srv := httptest.NewServer(e)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, streamURL(srv), nil)
	require.NoError(t, err)
	defer conn.CloseNow()

	var msg LevelsResponse
	require.NoError(t, wsjson.Read(ctx, conn, &msg))

	done := make(chan struct{})
	go func() {
		c.Shutdown()
		close(done)
	}()

	for {
		if err = wsjson.Read(ctx, conn, &msg); err != nil {
			break
		}
	}
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(err))

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("shutdown did not wait for the stream to end")
	}
}

func TestStreamLevels_RejectsPlainHTTP(t *testing.T) {
	t.Parallel()

	e, _ := setupTestController(t, newFakePipeline())
	rec := doRequest(t, e, http.MethodGet, levelStreamEndpoint, nil)
	assert.Equal(t, http.StatusUpgradeRequired, rec.Code)
}

func TestOriginPatterns(t *testing.T) {
	t.Parallel()

	_, c := setupTestController(t, newFakePipeline())
	c.Settings.WebServer.AllowOrigins = []string{"https://app.example.com", "http://localhost:3000", "not a url"}
	assert.Equal(t, []string{"app.example.com", "localhost:3000"}, c.originPatterns())

	c.Settings.WebServer.AllowOrigins = []string{"https://app.example.com", "*"}
	assert.Equal(t, []string{"*"}, c.originPatterns())
}
