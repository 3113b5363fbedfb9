package audio

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echolens-ai/echolens/internal/detection"
)

func TestDemoSourceDrawRates(t *testing.T) {
	t.Parallel()

	src := NewDemoSource(DemoConfig{Rand: rand.New(rand.NewPCG(1, 2))})

	const draws = 20000
	var speech, sound int
	for range draws {
		frame := src.Generate()
		require.True(t, frame.IsSynthetic())
		ev := frame.Synthetic
		assert.GreaterOrEqual(t, ev.Level, 0.0)
		assert.Less(t, ev.Level, 100.0)

		if ev.Speech != nil {
			speech++
			assert.Contains(t, demoPhrases, ev.Speech.Text)
			assert.True(t, detection.IsEmotion(ev.Speech.Emotion))
			assert.GreaterOrEqual(t, ev.Speech.EmotionConfidence, 0.7)
			assert.LessOrEqual(t, ev.Speech.EmotionConfidence, 0.98)
		}
		if ev.Sound != nil {
			sound++
			assert.Contains(t, detection.SoundsIn(ev.Sound.Category), ev.Sound.Label)
			assert.GreaterOrEqual(t, ev.Sound.Confidence, 0.75)
			assert.LessOrEqual(t, ev.Sound.Confidence, 0.98)
			switch ev.Sound.Direction {
			case "left":
				assert.InDelta(t, 270.0, ev.Sound.Angle, 0)
			case "right":
				assert.InDelta(t, 90.0, ev.Sound.Angle, 0)
			case "center":
				assert.InDelta(t, 0.0, ev.Sound.Angle, 0)
			default:
				t.Fatalf("unexpected direction %q", ev.Sound.Direction)
			}
			assert.Contains(t, []string{"near", "medium", "far"}, ev.Sound.Distance)
		}
	}

	assert.InDelta(t, 0.2, float64(speech)/draws, 0.02)
	assert.InDelta(t, 0.15, float64(sound)/draws, 0.02)
}

func TestDemoSourcePacing(t *testing.T) {
	t.Parallel()

	src := NewDemoSource(DemoConfig{Interval: 200 * time.Millisecond})
	ctx := context.Background()

	_, err := src.NextFrame(ctx, 10*time.Millisecond)
	require.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, src.Start(ctx))
	defer src.Stop()

	// first frame is immediate
	_, err = src.NextFrame(ctx, 10*time.Millisecond)
	require.NoError(t, err)

	// the next one is not due before the interval elapses
	_, err = src.NextFrame(ctx, 10*time.Millisecond)
	require.ErrorIs(t, err, ErrNoFrame)

	_, err = src.NextFrame(ctx, time.Second)
	require.NoError(t, err)
}

func TestDemoSourceUsesClock(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	src := NewDemoSource(DemoConfig{Now: func() time.Time { return fixed }})
	assert.Equal(t, fixed, src.Generate().Timestamp)
	assert.Equal(t, "demo", src.Name())
}
