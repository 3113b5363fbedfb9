// Package pipeline runs the real-time audio event loop.
//
// One loop goroutine pulls frames from the active audio source, records the
// signal level, estimates stereo direction, classifies environmental sounds
// and dispatches speech recognition plus emotion analysis to short-lived
// tasks. Results land in two bounded sinks that REST clients poll.
//
// Control operations (Start, Stop, SetMode) are serialized by one mutex and
// always stop the active loop before starting another, so at most one loop
// runs at any time.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/echolens-ai/echolens/internal/audio"
	"github.com/echolens-ai/echolens/internal/classifier"
	"github.com/echolens-ai/echolens/internal/detection"
	"github.com/echolens-ai/echolens/internal/emotion"
	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/levels"
	"github.com/echolens-ai/echolens/internal/llm"
	"github.com/echolens-ai/echolens/internal/logger"
	"github.com/echolens-ai/echolens/internal/preferences"
	"github.com/echolens-ai/echolens/internal/speech"
)

// State is the lifecycle state of the processing loop.
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// Results of Start and Stop.
const (
	StatusStarted        = "started"
	StatusAlreadyRunning = "already_running"
	StatusStopped        = "stopped"
	StatusNotRunning     = "not_running"
)

// Audio availability reported by Status.
const (
	AudioAvailable   = "available"
	AudioUnavailable = "unavailable"
	AudioSimulated   = "simulated"
)

// SourceFactory creates the frame source for a mode.
type SourceFactory func(mode Mode) audio.Source

// Deps are the collaborators of the pipeline. Every field is optional;
// a nil Classifier or Recognizer disables that stage for live frames.
type Deps struct {
	Classifier  classifier.Classifier
	Recognizer  speech.Recognizer
	Analyzer    emotion.Analyzer
	Completer   llm.Completer // reported as gemini_api in Status
	Preferences *preferences.Store
	Repository  detection.Repository
	Handlers    []detection.Handler
	Metrics     Metrics
	Sources     SourceFactory

	// OnRunning is called after the loop starts or stops.
	OnRunning func(running bool)
}

// Pipeline is the audio event pipeline.
type Pipeline struct {
	cfg  Config
	deps Deps

	ctrl       sync.Mutex // serializes Start, Stop and SetMode
	limiter    *rate.Limiter
	lastSwitch time.Time

	mu        sync.RWMutex // guards the fields below for Status
	state     State
	mode      Mode
	audio     string
	source    audio.Source
	startedAt time.Time

	cancel     context.CancelFunc
	taskCancel context.CancelFunc
	done       chan struct{}

	tasks    sync.WaitGroup
	inflight atomic.Int64
	loops    atomic.Int32

	levels         *levels.Tracker
	transcriptions *detection.Sink[detection.Transcription]
	alerts         *detection.Sink[detection.SoundAlert]

	logger logger.Logger
}

// New creates a stopped pipeline.
func New(cfg Config, deps Deps) *Pipeline {
	cfg = cfg.withDefaults()
	if deps.Metrics == nil {
		deps.Metrics = nopMetrics{}
	}
	if deps.Preferences == nil {
		deps.Preferences = preferences.NewStore(preferences.Defaults(), nil)
	}
	if deps.Sources == nil {
		deps.Sources = DefaultSources(cfg)
	}

	limit := rate.Inf
	if cfg.ModeCooldown > 0 {
		limit = rate.Every(cfg.ModeCooldown)
	}

	return &Pipeline{
		cfg:            cfg,
		deps:           deps,
		limiter:        rate.NewLimiter(limit, 1),
		state:          StateStopped,
		mode:           cfg.Mode,
		levels:         levels.NewTracker(cfg.LevelHistory),
		transcriptions: detection.NewSink[detection.Transcription](cfg.SinkCapacity, cfg.SinkRetain),
		alerts:         detection.NewSink[detection.SoundAlert](cfg.SinkCapacity, cfg.SinkRetain),
		logger:         GetLogger(),
	}
}

// DefaultSources returns a factory creating malgo capture for live mode and
// the synthetic generator for demo mode.
func DefaultSources(cfg Config) SourceFactory {
	return func(mode Mode) audio.Source {
		if mode == ModeLive {
			return audio.NewLiveSource(cfg.Live)
		}
		return audio.NewDemoSource(cfg.Demo)
	}
}

// Start starts the loop in the current mode. It returns StatusAlreadyRunning
// when a loop is active.
func (p *Pipeline) Start(ctx context.Context) (string, error) {
	p.ctrl.Lock()
	defer p.ctrl.Unlock()

	if p.cancel != nil {
		return StatusAlreadyRunning, nil
	}
	p.mu.RLock()
	mode := p.mode
	p.mu.RUnlock()

	if err := p.startLocked(ctx, mode); err != nil {
		return "", err
	}
	return StatusStarted, nil
}

// Stop stops the loop and drains in-flight speech tasks. Stopping a stopped
// pipeline returns StatusNotRunning.
func (p *Pipeline) Stop(ctx context.Context) (string, error) {
	p.ctrl.Lock()
	defer p.ctrl.Unlock()

	if !p.stopLocked(ctx) {
		return StatusNotRunning, nil
	}
	return StatusStopped, nil
}

// SetMode switches the frame source. Calls inside the cooldown after the
// previous switch fail with ErrThrottled and leave the mode unchanged.
// Otherwise the active loop is stopped and a loop for the new mode started.
func (p *Pipeline) SetMode(ctx context.Context, mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}

	p.ctrl.Lock()
	defer p.ctrl.Unlock()

	if !p.limiter.Allow() {
		p.deps.Metrics.RecordThrottled()
		return errors.New(ErrThrottled).
			Component(ComponentPipeline).
			Category(errors.CategoryThrottled).
			Context("requested_mode", string(mode)).
			Context("since_last_switch", time.Since(p.lastSwitch).String()).
			Build()
	}

	p.mu.RLock()
	from := p.mode
	p.mu.RUnlock()

	p.stopLocked(ctx)

	p.mu.Lock()
	p.mode = mode
	p.mu.Unlock()
	p.lastSwitch = time.Now()
	p.deps.Metrics.RecordModeSwitch(string(mode))
	p.logger.Info("pipeline mode changed",
		logger.String("from", string(from)),
		logger.String("to", string(mode)))

	return p.startLocked(ctx, mode)
}

// startLocked opens the source for mode and launches the loop.
// Live mode falls back to the demo source when no capture device is available.
func (p *Pipeline) startLocked(ctx context.Context, mode Mode) error {
	p.setState(StateStarting)

	src := p.deps.Sources(mode)
	availability := AudioSimulated
	if mode == ModeLive {
		availability = AudioAvailable
	}

	if err := src.Start(ctx); err != nil {
		if mode != ModeLive || !errors.Is(err, audio.ErrDeviceUnavailable) {
			p.setState(StateStopped)
			return err
		}
		p.logger.Warn("audio device unavailable, falling back to demo source", logger.Error(err))
		src = p.deps.Sources(ModeDemo)
		if err := src.Start(ctx); err != nil {
			p.setState(StateStopped)
			return err
		}
		availability = AudioUnavailable
	}

	base := context.WithoutCancel(ctx)
	loopCtx, cancel := context.WithCancel(base)
	taskCtx, taskCancel := context.WithCancel(base)
	done := make(chan struct{})

	p.cancel = cancel
	p.taskCancel = taskCancel
	p.done = done

	p.mu.Lock()
	p.source = src
	p.audio = availability
	p.state = StateRunning
	p.startedAt = time.Now()
	p.mu.Unlock()

	origin := detection.SourceDemo
	if availability == AudioAvailable {
		origin = detection.SourceLive
	}

	p.loops.Add(1)
	go func() {
		defer close(done)
		defer p.loops.Add(-1)
		p.run(loopCtx, taskCtx, src, origin)
	}()

	p.deps.Metrics.SetRunning(true)
	if p.deps.OnRunning != nil {
		p.deps.OnRunning(true)
	}
	p.logger.Info("pipeline started",
		logger.String("mode", string(mode)),
		logger.String("source", src.Name()),
		logger.String("audio", availability))
	return nil
}

// stopLocked cancels the loop, waits for it to exit and drains speech tasks.
// It reports whether a loop was running.
func (p *Pipeline) stopLocked(ctx context.Context) bool {
	if p.cancel == nil {
		return false
	}
	p.setState(StateStopping)

	p.cancel()
	<-p.done

	p.mu.RLock()
	src := p.source
	p.mu.RUnlock()
	if err := src.Stop(); err != nil {
		p.logger.Warn("failed to stop audio source", logger.Error(err))
	}

	p.drain(ctx)
	p.taskCancel()

	p.cancel, p.taskCancel, p.done = nil, nil, nil
	p.mu.Lock()
	p.source = nil
	p.audio = ""
	p.state = StateStopped
	p.mu.Unlock()

	p.deps.Metrics.SetRunning(false)
	if p.deps.OnRunning != nil {
		p.deps.OnRunning(false)
	}
	p.logger.Info("pipeline stopped")
	return true
}

// drain waits for in-flight speech tasks up to the grace period, then
// cancels the rest and waits for them to return.
func (p *Pipeline) drain(ctx context.Context) {
	drained := make(chan struct{})
	go func() {
		p.tasks.Wait()
		close(drained)
	}()

	grace := time.NewTimer(p.cfg.DrainGrace)
	defer grace.Stop()

	select {
	case <-drained:
		return
	case <-grace.C:
	case <-ctx.Done():
	}

	p.logger.Warn("cancelling speech tasks after drain grace",
		logger.Int64("in_flight", p.inflight.Load()),
		logger.Duration("grace", p.cfg.DrainGrace))
	p.taskCancel()
	<-drained
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// ActiveLoops returns the number of running loop goroutines, 0 or 1.
func (p *Pipeline) ActiveLoops() int {
	return int(p.loops.Load())
}
