package chat

import (
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/echolens-ai/echolens/internal/detection"
)

// rule maps keywords to a canned reply. Single words match whole words,
// phrases match as substrings.
type rule struct {
	keywords []string
	reply    string
}

var rules = []rule{
	{[]string{"hello", "hi", "hey", "greetings"}, "Hello! How are you feeling today?"},
	{[]string{"happy", "good", "great", "wonderful"}, "I'm glad to hear you're feeling positive! What's contributing to your good mood today?"},
	{[]string{"sad", "unhappy", "depressed", "down"}, "I'm sorry you're feeling down. Remember that it's okay to feel this way, and these emotions will pass. Would you like to talk about what's causing these feelings?"},
	{[]string{"angry", "mad", "frustrated", "annoyed"}, "I understand you're feeling frustrated. Taking deep breaths can help calm your mind. Would you like to try a quick breathing exercise together?"},
	{[]string{"anxious", "worried", "nervous", "stress", "stressed"}, "Anxiety can be difficult to manage. Let's try to break down what's causing your worry. Is there a specific situation that's making you feel this way?"},
	{[]string{"tired", "exhausted", "sleepy"}, "It sounds like you need some rest. Ensuring adequate sleep and downtime is important for mental health. Can I suggest some relaxation techniques?"},
	{[]string{"what can you do", "help me", "how does this work"}, "I'm designed to be a supportive companion. I can chat with you about how you're feeling, provide suggestions for mental health support, and offer a listening ear. How can I help you today?"},
}

var contextReplies = map[string]string{
	"happy": "I can see you're in a good mood! It's wonderful to experience positive emotions. Would you like to discuss ways to maintain this feeling?",
	"sad":   "I notice you might be feeling down. Sometimes talking about our feelings can help. Would you like to share what's on your mind?",
	"angry": "I can tell you might be feeling frustrated. Taking a moment to reflect can be helpful. What would help you feel more at ease right now?",
}

const genericContextReply = "I notice your emotional state. How can I support you right now?"

var defaultReplies = []string{
	"I'm here to support you. How else can I help today?",
	"Could you tell me more about how you're feeling?",
	"Thank you for sharing. What would be most helpful for you right now?",
	"I'm listening. Would you like to explore some coping strategies together?",
	"Your well-being matters. What small step could you take today to care for yourself?",
}

// RuleBased produces canned replies. Defaults rotate in a fixed order.
type RuleBased struct {
	next atomic.Uint64
}

// Reply returns the rule based reply for message and the emotional context.
func (r *RuleBased) Reply(message string, ctx *EmotionContext) string {
	lower := strings.ToLower(message)
	words := strings.FieldsFunc(lower, func(c rune) bool {
		return !unicode.IsLetter(c) && c != '\''
	})

	for _, rl := range rules {
		if matches(lower, words, rl.keywords) {
			return rl.reply
		}
	}

	if ctx != nil && ctx.Emotion != "" && ctx.Emotion != detection.EmotionNeutral {
		if reply, ok := contextReplies[strings.ToLower(ctx.Emotion)]; ok {
			return reply
		}
		return genericContextReply
	}

	i := r.next.Add(1) - 1
	return defaultReplies[i%uint64(len(defaultReplies))]
}

func matches(lower string, words, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(lower, kw) {
				return true
			}
			continue
		}
		for _, w := range words {
			if w == kw {
				return true
			}
		}
	}
	return false
}
