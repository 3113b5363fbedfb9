package audio

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/echolens-ai/echolens/internal/detection"
	"github.com/echolens-ai/echolens/internal/logger"
)

const (
	demoSpeechProbability = 0.2
	demoSoundProbability  = 0.15
)

var demoPhrases = []string{
	"I'm really excited about this project!",
	"Can you help me understand what that sound was?",
	"I'm not sure if this is working correctly.",
	"The weather today is beautiful.",
	"Did you hear that noise from the kitchen?",
	"I don't think you understood what I meant.",
}

// demoDirections pairs a direction label with its nominal angle.
var demoDirections = []struct {
	name  string
	angle float64
}{
	{"left", 270},
	{"right", 90},
	{"center", 0},
}

var demoDistances = []string{detection.DistanceNear, detection.DistanceMedium, detection.DistanceFar}

// DemoConfig configures a DemoSource.
type DemoConfig struct {
	Interval   time.Duration // pacing between frames
	SampleRate int           // nominal sample rate reported on frames
	Channels   int

	// Rand and Now are replaceable for tests.
	Rand *rand.Rand
	Now  func() time.Time
}

// DemoSource fabricates synthetic speech and sound events.
type DemoSource struct {
	cfg     DemoConfig
	mu      sync.Mutex // guards rng
	rng     *rand.Rand
	running atomic.Bool
	last    time.Time
	lastMu  sync.Mutex
	logger  logger.Logger
}

// NewDemoSource creates a demo source.
func NewDemoSource(cfg DemoConfig) *DemoSource {
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 2
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // demo data only
	}
	return &DemoSource{
		cfg:    cfg,
		rng:    rng,
		logger: GetLogger().With(logger.String("source", "demo")),
	}
}

// Name returns the source name.
func (s *DemoSource) Name() string { return "demo" }

// Start marks the source running. It never fails.
func (s *DemoSource) Start(_ context.Context) error {
	if !s.running.Swap(true) {
		s.logger.Info("demo source started", logger.Duration("interval", s.cfg.Interval))
	}
	return nil
}

// Stop marks the source stopped.
func (s *DemoSource) Stop() error {
	if s.running.Swap(false) {
		s.logger.Info("demo source stopped")
	}
	return nil
}

// NextFrame returns one synthetic frame. It waits for the remainder of the
// demo interval since the previous frame, bounded by timeout; when the
// interval has not yet elapsed after timeout it returns ErrNoFrame.
func (s *DemoSource) NextFrame(ctx context.Context, timeout time.Duration) (Frame, error) {
	if !s.running.Load() {
		return Frame{}, ErrNotStarted
	}

	if wait := s.untilNext(); wait > 0 {
		d := min(wait, timeout)
		timer := time.NewTimer(d)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return Frame{}, ctx.Err()
		}
		if wait > timeout {
			return Frame{}, ErrNoFrame
		}
	}

	s.lastMu.Lock()
	s.last = time.Now()
	s.lastMu.Unlock()

	return s.Generate(), nil
}

func (s *DemoSource) untilNext() time.Duration {
	s.lastMu.Lock()
	defer s.lastMu.Unlock()
	if s.last.IsZero() || s.cfg.Interval == 0 {
		return 0
	}
	return s.cfg.Interval - time.Since(s.last)
}

// Generate draws one synthetic frame without pacing.
func (s *DemoSource) Generate() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()

	event := &SyntheticEvent{Level: s.rng.Float64() * 100}

	if s.rng.Float64() < demoSpeechProbability {
		event.Speech = &SyntheticSpeech{
			Text:              demoPhrases[s.rng.IntN(len(demoPhrases))],
			Confidence:        s.uniform(0.7, 0.98),
			Emotion:           detection.Emotions[s.rng.IntN(len(detection.Emotions))],
			EmotionConfidence: s.uniform(0.7, 0.98),
		}
	}

	if s.rng.Float64() < demoSoundProbability {
		categories := detection.Categories()
		category := categories[s.rng.IntN(len(categories))]
		sounds := detection.SoundsIn(category)
		dir := demoDirections[s.rng.IntN(len(demoDirections))]
		event.Sound = &SyntheticSound{
			Label:      sounds[s.rng.IntN(len(sounds))],
			Category:   category,
			Direction:  dir.name,
			Angle:      dir.angle,
			Distance:   demoDistances[s.rng.IntN(len(demoDistances))],
			Confidence: s.uniform(0.75, 0.98),
		}
	}

	return Frame{
		SampleRate: s.cfg.SampleRate,
		Timestamp:  s.cfg.Now(),
		Synthetic:  event,
	}
}

func (s *DemoSource) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}
