package robot

import (
	"context"
	"sync"
	"time"

	"github.com/echolens-ai/echolens/internal/detection"
	"github.com/echolens-ai/echolens/internal/logger"
)

// Status is a snapshot of the controller.
type Status struct {
	Enabled      bool      `json:"enabled"`
	State        State     `json:"state"`
	Actuator     string    `json:"actuator"`
	LastReaction *Command  `json:"last_reaction,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	Reactions    int64     `json:"reactions"`
	Emotions     []string  `json:"emotions"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Controller drives an actuator from emotions. Automatic reactions to
// transcriptions are queued and performed by a worker; manual reactions
// run synchronously.
type Controller struct {
	actuator Actuator
	timeout  time.Duration
	now      func() time.Time
	logger   logger.Logger

	mu        sync.Mutex
	perform   sync.Mutex
	state     State
	listening bool
	last      *Command
	lastErr   string
	reactions int64
	updatedAt time.Time

	queue     chan Command
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// DefaultTimeout bounds one actuator call.
const DefaultTimeout = 5 * time.Second

// NewController creates a controller and starts its worker. A nil actuator
// uses the simulated log actuator.
func NewController(actuator Actuator) *Controller {
	if actuator == nil {
		actuator = NewLogActuator()
	}
	c := &Controller{
		actuator:  actuator,
		timeout:   DefaultTimeout,
		now:       time.Now,
		logger:    GetLogger(),
		state:     StateIdle,
		updatedAt: time.Now(),
		queue:     make(chan Command, 8),
		done:      make(chan struct{}),
	}
	c.wg.Add(1)
	go c.run()
	return c
}

// React performs the reaction for an emotion and returns it.
func (c *Controller) React(ctx context.Context, emotion string, confidence float64) (Command, error) {
	select {
	case <-c.done:
		return Command{}, ErrClosed
	default:
	}
	cmd := Command{Reaction: ReactionFor(emotion), Confidence: confidence, Timestamp: c.now()}
	return cmd, c.execute(ctx, cmd)
}

// HandleTranscription implements detection.Handler. Transcriptions without
// an emotion analysis do not trigger a reaction.
func (c *Controller) HandleTranscription(_ context.Context, t detection.Transcription) error {
	if t.AnalysisSource == detection.AnalysisDisabled {
		return nil
	}
	cmd := Command{Reaction: ReactionFor(t.Emotion), Confidence: t.EmotionConfidence, Timestamp: t.Timestamp}

	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	select {
	case c.queue <- cmd:
		c.setState(StateProcessing)
	default:
		c.logger.Debug("Robot busy, dropping reaction", logger.String("emotion", cmd.Emotion))
	}
	return nil
}

// HandleSoundAlert implements detection.Handler. Sound alerts do not trigger reactions.
func (c *Controller) HandleSoundAlert(context.Context, detection.SoundAlert) error {
	return nil
}

// SetListening marks the controller as listening while the pipeline runs.
func (c *Controller) SetListening(listening bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listening = listening
	if c.state == StateIdle || c.state == StateListening {
		c.state = c.restingState()
		c.updatedAt = c.now()
	}
}

// restingState must be called with mu held.
func (c *Controller) restingState() State {
	if c.listening {
		return StateListening
	}
	return StateIdle
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	var last *Command
	if c.last != nil {
		cp := *c.last
		last = &cp
	}
	return Status{
		Enabled:      true,
		State:        c.state,
		Actuator:     c.actuator.Name(),
		LastReaction: last,
		LastError:    c.lastErr,
		Reactions:    c.reactions,
		Emotions:     Emotions(),
		UpdatedAt:    c.updatedAt,
	}
}

// Close stops the worker; queued reactions are dropped.
func (c *Controller) Close() {
	c.closeOnce.Do(func() { close(c.done) })
	c.wg.Wait()
}

func (c *Controller) run() {
	defer c.wg.Done()
	for {
		select {
		case cmd := <-c.queue:
			_ = c.execute(context.Background(), cmd)
		case <-c.done:
			return
		}
	}
}

func (c *Controller) execute(ctx context.Context, cmd Command) error {
	// one reaction at a time on the hardware
	c.perform.Lock()
	defer c.perform.Unlock()

	c.mu.Lock()
	c.state = StateResponding
	c.updatedAt = c.now()
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	err := c.actuator.Perform(ctx, cmd)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.updatedAt = c.now()
	if err != nil {
		c.state = StateError
		c.lastErr = err.Error()
		c.logger.Warn("Robot reaction failed",
			logger.String("emotion", cmd.Emotion),
			logger.String("actuator", c.actuator.Name()),
			logger.Error(err))
		return err
	}

	c.reactions++
	c.last = &cmd
	c.lastErr = ""
	c.state = c.restingState()
	return nil
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateResponding {
		return
	}
	c.state = s
	c.updatedAt = c.now()
}
