package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "https://llm.example.test/v1beta/openai/"

func completionBody(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gemini-1.5-pro",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return string(body)
}

func newMockedClient(t *testing.T, rateLimit float64) *Client {
	t.Helper()

	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	t.Cleanup(httpmock.DeactivateAndReset)

	c, err := New(Config{
		APIKey:      "test-key",
		BaseURL:     testBaseURL,
		Model:       "gemini-1.5-pro",
		Temperature: 0.7,
		RateLimit:   rateLimit,
		HTTPClient:  hc,
	})
	require.NoError(t, err)
	return c
}

func TestCompleteSendsMessages(t *testing.T) {
	c := newMockedClient(t, 0)

	var got struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"chat/completions", func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "Bearer test-key", req.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		return httpmock.NewStringResponse(http.StatusOK, completionBody("Hello there")), nil
	})

	assert.Equal(t, StatusConnected, c.Status())

	out, err := c.Complete(context.Background(), Request{
		System:   "be kind",
		Messages: []Message{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}, {Role: "user", Content: "how are you"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", out)

	assert.Equal(t, "gemini-1.5-pro", got.Model)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "assistant", got.Messages[2].Role)
	assert.Equal(t, StatusConnected, c.Status())
}

func TestCompleteServiceError(t *testing.T) {
	c := newMockedClient(t, 0)
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"chat/completions",
		httpmock.NewStringResponder(http.StatusInternalServerError, `{"error":{"message":"boom"}}`))

	_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrService)
	assert.Equal(t, StatusError, c.Status())
}

func TestCompleteEmptyResponse(t *testing.T) {
	c := newMockedClient(t, 0)
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"chat/completions",
		httpmock.NewStringResponder(http.StatusOK, completionBody("   ")))

	_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestCompleteRateLimited(t *testing.T) {
	c := newMockedClient(t, 0.001)
	calls := 0
	httpmock.RegisterResponder(http.MethodPost, testBaseURL+"chat/completions", func(*http.Request) (*http.Response, error) {
		calls++
		return httpmock.NewStringResponse(http.StatusOK, completionBody("ok")), nil
	})

	_, err := c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, calls)
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Model: "m"})
	assert.Error(t, err)
	_, err = New(Config{APIKey: "k"})
	assert.Error(t, err)

	assert.Equal(t, StatusDisconnected, StatusOf(nil))
}
