package speech

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recognizeURL = "https://speech.googleapis.com/v1/speech:recognize"

func newMockedGoogle(t *testing.T) *Google {
	t.Helper()

	client := &http.Client{}
	httpmock.ActivateNonDefault(client)
	t.Cleanup(httpmock.DeactivateAndReset)

	g, err := NewGoogle(context.Background(), Config{HTTPClient: client, Language: "en-GB"})
	require.NoError(t, err)
	return g
}

func TestGoogleRecognize(t *testing.T) {
	g := newMockedGoogle(t)

	var got map[string]any
	httpmock.RegisterResponder(http.MethodPost, recognizeURL, func(req *http.Request) (*http.Response, error) {
		require.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		return httpmock.NewStringResponse(http.StatusOK, `{"results":[
			{"alternatives":[{"transcript":"someone is at the door","confidence":0.91}]},
			{"alternatives":[{"transcript":" please","confidence":0.8}]}
		]}`), nil
	})

	res, err := g.Recognize(context.Background(), []float32{0, 0.5, -0.5}, 16000)
	require.NoError(t, err)
	assert.Equal(t, "someone is at the door please", res.Text)
	assert.InDelta(t, 0.91, res.Confidence, 1e-9)

	cfg := got["config"].(map[string]any)
	assert.Equal(t, "LINEAR16", cfg["encoding"])
	assert.Equal(t, "en-GB", cfg["languageCode"])
	assert.InDelta(t, 16000, cfg["sampleRateHertz"], 0)

	content, err := base64.StdEncoding.DecodeString(got["audio"].(map[string]any)["content"].(string))
	require.NoError(t, err)
	assert.Len(t, content, 6)
}

func TestGoogleRecognizeNoSpeech(t *testing.T) {
	g := newMockedGoogle(t)
	httpmock.RegisterResponder(http.MethodPost, recognizeURL, httpmock.NewStringResponder(http.StatusOK, `{}`))

	_, err := g.Recognize(context.Background(), []float32{0.1}, 16000)
	assert.ErrorIs(t, err, ErrNoSpeech)
	assert.NotErrorIs(t, err, ErrService)

	_, err = g.Recognize(context.Background(), nil, 16000)
	assert.ErrorIs(t, err, ErrNoSpeech)
}

func TestGoogleRecognizeServiceError(t *testing.T) {
	g := newMockedGoogle(t)
	httpmock.RegisterResponder(http.MethodPost, recognizeURL,
		httpmock.NewStringResponder(http.StatusForbidden, `{"error":{"code":403,"message":"API key invalid"}}`))

	_, err := g.Recognize(context.Background(), []float32{0.1}, 16000)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrService)
	assert.NotErrorIs(t, err, ErrNoSpeech)
}

func TestNewGoogleRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewGoogle(context.Background(), Config{})
	assert.Error(t, err)
}

func TestEncodeLinear16(t *testing.T) {
	t.Parallel()

	pcm := encodeLinear16([]float32{1, -1, 2})
	assert.Equal(t, []byte{0xff, 0x7f, 0x01, 0x80, 0xff, 0x7f}, pcm)
}
