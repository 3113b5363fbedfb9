package robot

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echolens-ai/echolens/internal/detection"
	apperrors "github.com/echolens-ai/echolens/internal/errors"
)

func TestReactionFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		emotion  string
		want     string
		movement Movement
		sound    string
		led      RGB
	}{
		{"happy", "happy", MovementNod, "happy.wav", RGB{0, 255, 0}},
		{"sad", "sad", MovementTiltLeft, "sad.wav", RGB{0, 0, 255}},
		{"angry", "angry", MovementShake, "calm.wav", RGB{255, 0, 0}},
		{"neutral", "neutral", MovementLookAround, "neutral.wav", RGB{255, 255, 255}},
		{"surprise", "surprise", MovementJump, "surprise.wav", RGB{255, 255, 0}},
		{"Surprised", "surprise", MovementJump, "surprise.wav", RGB{255, 255, 0}},
		{"sarcastic", "neutral", MovementLookAround, "neutral.wav", RGB{255, 255, 255}},
		{"", "neutral", MovementLookAround, "neutral.wav", RGB{255, 255, 255}},
	}
	for _, tt := range tests {
		t.Run(tt.emotion, func(t *testing.T) {
			t.Parallel()
			r := ReactionFor(tt.emotion)
			assert.Equal(t, tt.want, r.Emotion)
			assert.Equal(t, tt.movement, r.Movement)
			assert.Equal(t, tt.sound, r.Sound)
			assert.Equal(t, tt.led, r.LEDColor)
			assert.NotEmpty(t, r.Message)
		})
	}
}

func TestState_JSON(t *testing.T) {
	t.Parallel()
	b, err := json.Marshal(struct{ S State }{StateResponding})
	require.NoError(t, err)
	assert.JSONEq(t, `{"S":"RESPONDING"}`, string(b))
	assert.Equal(t, "UNKNOWN", State(42).String())

	var decoded struct{ S State }
	require.NoError(t, json.Unmarshal([]byte(`{"S":"listening"}`), &decoded))
	assert.Equal(t, StateListening, decoded.S)
	assert.Error(t, json.Unmarshal([]byte(`{"S":"dancing"}`), &decoded))
}

type recordingActuator struct {
	mu   sync.Mutex
	cmds []Command
	err  error
}

func (a *recordingActuator) Name() string { return "recording" }

func (a *recordingActuator) Perform(_ context.Context, cmd Command) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cmds = append(a.cmds, cmd)
	return a.err
}

func (a *recordingActuator) count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.cmds)
}

func TestController_ManualReaction(t *testing.T) {
	t.Parallel()

	act := &recordingActuator{}
	c := NewController(act)
	defer c.Close()

	cmd, err := c.React(t.Context(), "happy", 0.9)
	require.NoError(t, err)
	assert.Equal(t, MovementNod, cmd.Movement)

	st := c.Status()
	assert.Equal(t, StateIdle, st.State)
	assert.Equal(t, int64(1), st.Reactions)
	require.NotNil(t, st.LastReaction)
	assert.Equal(t, "happy", st.LastReaction.Emotion)
	assert.Equal(t, "recording", st.Actuator)
}

func TestController_FailureSetsErrorState(t *testing.T) {
	t.Parallel()

	act := &recordingActuator{err: errors.New("servo jammed")}
	c := NewController(act)
	defer c.Close()

	_, err := c.React(t.Context(), "sad", 0.5)
	require.Error(t, err)
	st := c.Status()
	assert.Equal(t, StateError, st.State)
	assert.Equal(t, "servo jammed", st.LastError)

	act.mu.Lock()
	act.err = nil
	act.mu.Unlock()
	_, err = c.React(t.Context(), "sad", 0.5)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, c.Status().State)
}

func TestController_TranscriptionTriggersReaction(t *testing.T) {
	t.Parallel()

	act := &recordingActuator{}
	c := NewController(act)
	defer c.Close()
	c.SetListening(true)

	analysed, err := detection.NewTranscription("wow", 0.9,
		&detection.EmotionAnalysis{Emotion: "surprised", Confidence: 0.8, Source: detection.AnalysisRemote},
		detection.SourceLive, time.Now())
	require.NoError(t, err)
	plain, err := detection.NewTranscription("hello", 0.9, nil, detection.SourceLive, time.Now())
	require.NoError(t, err)

	require.NoError(t, c.HandleTranscription(t.Context(), plain))
	require.NoError(t, c.HandleTranscription(t.Context(), analysed))
	require.NoError(t, c.HandleSoundAlert(t.Context(), detection.SoundAlert{}))

	require.Eventually(t, func() bool { return c.Status().Reactions == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, act.count(), "only analysed transcriptions trigger reactions")
	assert.Equal(t, "surprise", c.Status().LastReaction.Emotion)
	assert.Equal(t, StateListening, c.Status().State)

	c.SetListening(false)
	assert.Equal(t, StateIdle, c.Status().State)
}

func TestController_Closed(t *testing.T) {
	t.Parallel()

	c := NewController(nil)
	c.Close()
	c.Close()

	_, err := c.React(context.Background(), "happy", 1)
	require.ErrorIs(t, err, ErrClosed)
	assert.Equal(t, "log", c.Status().Actuator)
}

type fakePublisher struct {
	topic   string
	payload string
	err     error
}

func (p *fakePublisher) Publish(_ context.Context, topic, payload string) error {
	p.topic, p.payload = topic, payload
	return p.err
}

func TestMQTTActuator(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	a := NewMQTTActuator(pub, "echolens/robot")
	cmd := Command{Reaction: ReactionFor("angry"), Confidence: 0.7, Timestamp: time.Unix(0, 0).UTC()}
	require.NoError(t, a.Perform(t.Context(), cmd))

	assert.Equal(t, "echolens/robot", pub.topic)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(pub.payload), &got))
	assert.Equal(t, "angry", got["emotion"])
	assert.Equal(t, "SHAKE", got["movement"])
	assert.Equal(t, []any{255.0, 0.0, 0.0}, got["led_color"])

	pub.err = errors.New("not connected")
	err := a.Perform(t.Context(), cmd)
	require.Error(t, err)
	assert.True(t, apperrors.IsCategory(err, apperrors.CategoryMQTTPublish))
}
