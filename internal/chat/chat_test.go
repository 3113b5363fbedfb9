package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echolens-ai/echolens/internal/llm"
)

type fakeCompleter struct {
	reply string
	err   error
	last  llm.Request
}

func (f *fakeCompleter) Complete(_ context.Context, req llm.Request) (string, error) {
	f.last = req
	return f.reply, f.err
}

func (f *fakeCompleter) Status() string { return llm.StatusConnected }

func TestRuleBasedReplies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		message string
		ctx     *EmotionContext
		want    string
	}{
		{"greeting", "Hi there", nil, "Hello! How are you feeling today?"},
		{"greeting is a whole word", "this thing", nil, defaultReplies[0]},
		{"positive", "Today was GREAT", nil, rules[1].reply},
		{"sad", "I feel down", nil, rules[2].reply},
		{"angry", "so annoyed right now", nil, rules[3].reply},
		{"anxious", "I'm worried about tomorrow", nil, rules[4].reply},
		{"tired", "completely exhausted", nil, rules[5].reply},
		{"capability phrase", "what can you do?", nil, rules[6].reply},
		{"context happy", "tell me something", &EmotionContext{Emotion: "happy"}, contextReplies["happy"]},
		{"context sad", "tell me something", &EmotionContext{Emotion: "sad"}, contextReplies["sad"]},
		{"context other", "tell me something", &EmotionContext{Emotion: "surprised"}, genericContextReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var r RuleBased
			assert.Equal(t, tt.want, r.Reply(tt.message, tt.ctx))
		})
	}
}

func TestRuleBasedDefaultsRotate(t *testing.T) {
	t.Parallel()

	var r RuleBased
	neutral := &EmotionContext{Emotion: "neutral"}
	for i := range 2 * len(defaultReplies) {
		assert.Equal(t, defaultReplies[i%len(defaultReplies)], r.Reply("tell me something", neutral))
	}
}

func TestServiceRemoteWithHistory(t *testing.T) {
	t.Parallel()

	fc := &fakeCompleter{reply: "<p>I hear the <b>doorbell</b> too.</p>"}
	hist := NewMemoryHistory(10)
	svc := NewService(fc, hist)

	resp, err := svc.Reply(context.Background(), Request{
		Message: "Was that the door?",
		Context: &EmotionContext{Emotion: "concerned", Intensity: "high"},
	})
	require.NoError(t, err)
	assert.Equal(t, SourceRemote, resp.Source)
	assert.Equal(t, "I hear the doorbell too.", resp.Response)
	assert.NotEmpty(t, resp.SessionID)
	assert.Contains(t, fc.last.System, "concerned with high intensity")

	// second turn carries the first exchange
	_, err = svc.Reply(context.Background(), Request{Message: "Thanks", SessionID: resp.SessionID})
	require.NoError(t, err)
	require.Len(t, fc.last.Messages, 3)
	assert.Equal(t, "Was that the door?", fc.last.Messages[0].Content)
	assert.Equal(t, RoleAssistant, fc.last.Messages[1].Role)

	msgs, err := svc.History(context.Background(), resp.SessionID, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 4)

	require.NoError(t, svc.ClearHistory(context.Background(), resp.SessionID))
	msgs, err = svc.History(context.Background(), resp.SessionID, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestServiceFallsBackToRules(t *testing.T) {
	t.Parallel()

	for _, fc := range []llm.Completer{nil, &fakeCompleter{err: llm.ErrService}, &fakeCompleter{reply: "  "}} {
		svc := NewService(fc, nil)
		resp, err := svc.Reply(context.Background(), Request{Message: "hello", SessionID: "s1"})
		require.NoError(t, err)
		assert.Equal(t, SourceFallback, resp.Source)
		assert.Equal(t, "Hello! How are you feeling today?", resp.Response)
		assert.Equal(t, "s1", resp.SessionID)
	}
}

func TestServiceRejectsEmptyMessage(t *testing.T) {
	t.Parallel()

	_, err := NewService(nil, nil).Reply(context.Background(), Request{Message: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestMemoryHistoryBound(t *testing.T) {
	t.Parallel()

	h := NewMemoryHistory(3)
	ctx := context.Background()
	for _, c := range []string{"a", "b", "c", "d"} {
		require.NoError(t, h.AppendMessage(ctx, "s", Message{Role: RoleUser, Content: c}))
	}
	msgs, err := h.History(ctx, "s", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "b", msgs[0].Content)

	msgs, err = h.History(ctx, "s", 2)
	require.NoError(t, err)
	assert.Equal(t, "c", msgs[0].Content)

	require.NoError(t, h.ClearHistory(ctx, ""))
	msgs, _ = h.History(ctx, "s", 0)
	assert.Empty(t, msgs)
}
