package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/echolens-ai/echolens/internal/detection"
	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/logger"
	"github.com/echolens-ai/echolens/internal/observability/metrics"
	"github.com/echolens-ai/echolens/internal/preferences"
)

// PreferenceSource supplies the current user preferences.
type PreferenceSource interface {
	Get() preferences.Preferences
}

type guardedProvider struct {
	Provider
	breaker *CircuitBreaker
}

// Notifier implements detection.Handler. High-priority alerts are queued and
// delivered to every provider by a background worker; repeated alerts for the
// same sound within the cooldown are suppressed.
type Notifier struct {
	cfg       Config
	providers []guardedProvider
	prefs     PreferenceSource
	metrics   Metrics
	recent    *cache.Cache
	queue     chan Notification
	logger    logger.Logger

	wg        sync.WaitGroup
	done      chan struct{}
	closeOnce sync.Once
}

// NewNotifier creates a notifier and starts its worker. prefs and m may be nil.
func NewNotifier(cfg Config, providers []Provider, prefs PreferenceSource, m Metrics) (*Notifier, error) {
	if len(providers) == 0 {
		return nil, ErrNoProviders
	}
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if m == nil {
		m = nopMetrics{}
	}

	n := &Notifier{
		cfg:     cfg,
		prefs:   prefs,
		metrics: m,
		// entries expire lazily on Add, no janitor goroutine
		recent: cache.New(cfg.Cooldown, 0),
		queue:  make(chan Notification, cfg.QueueSize),
		logger: GetLogger(),
		done:   make(chan struct{}),
	}
	for _, p := range providers {
		n.providers = append(n.providers, guardedProvider{
			Provider: p,
			breaker:  NewCircuitBreaker(DefaultCircuitBreakerConfig(), p.Name()),
		})
	}

	n.wg.Add(1)
	go n.run()
	return n, nil
}

// HandleSoundAlert implements detection.Handler.
func (n *Notifier) HandleSoundAlert(_ context.Context, a detection.SoundAlert) error {
	if a.Priority != detection.PriorityHigh {
		return nil
	}
	if n.prefs != nil && n.prefs.Get().NotificationVolume == 0 {
		n.metrics.RecordSuppressed(reasonMuted)
		return nil
	}
	if n.cfg.Cooldown > 0 {
		// Add fails while an unexpired entry exists
		if err := n.recent.Add(a.Sound, struct{}{}, n.cfg.Cooldown); err != nil {
			n.metrics.RecordSuppressed(reasonCooldown)
			n.logger.Debug("Notification suppressed by cooldown", logger.String("sound", a.Sound))
			return nil
		}
	}

	select {
	case <-n.done:
		return nil
	default:
	}

	select {
	case n.queue <- n.build(a):
		return nil
	default:
		n.metrics.RecordSuppressed(reasonQueueFull)
		return errors.Newf("notification queue is full").
			Component(ComponentNotification).
			Category(errors.CategoryNotification).
			Context("sound", a.Sound).
			Build()
	}
}

// HandleTranscription implements detection.Handler. Transcriptions are not pushed.
func (n *Notifier) HandleTranscription(context.Context, detection.Transcription) error {
	return nil
}

// Notify sends a notification directly to all providers and returns the
// first delivery error.
func (n *Notifier) Notify(ctx context.Context, note *Notification) error {
	var firstErr error
	for _, p := range n.providers {
		if err := n.deliver(ctx, p, note); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (n *Notifier) build(a detection.SoundAlert) Notification {
	return Notification{
		Title:     fmt.Sprintf("%s: %s", n.cfg.Node, a.Description),
		Message:   fmt.Sprintf("%s at %s (%.0f%% confidence)", a.Description, a.Timestamp.Format("15:04:05"), a.Confidence*100),
		Sound:     a.Sound,
		Priority:  a.Priority,
		Direction: a.Direction,
		Timestamp: a.Timestamp,
	}
}

func (n *Notifier) run() {
	defer n.wg.Done()
	for {
		select {
		case note := <-n.queue:
			_ = n.Notify(context.Background(), &note)
		case <-n.done:
			return
		}
	}
}

func (n *Notifier) deliver(ctx context.Context, p guardedProvider, note *Notification) error {
	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	start := time.Now()
	err := p.breaker.Call(ctx, func(ctx context.Context) error { return p.Send(ctx, note) })
	if err != nil {
		n.metrics.RecordDelivery(p.Name(), metrics.StatusError, time.Since(start))
		n.metrics.RecordDeliveryError(p.Name(), errorCategory(err))
		n.logger.Warn("Notification delivery failed",
			logger.String("provider", p.Name()),
			logger.String("sound", note.Sound),
			logger.Error(err))
		return deliveryError(err, p.Name())
	}

	n.metrics.RecordDelivery(p.Name(), metrics.StatusSuccess, time.Since(start))
	n.logger.Info("Notification sent",
		logger.String("provider", p.Name()),
		logger.String("sound", note.Sound))
	return nil
}

func errorCategory(err error) string {
	switch {
	case errors.Is(err, ErrCircuitBreakerOpen), errors.Is(err, ErrTooManyRequests):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "send"
	}
}

// Close stops the worker. Queued notifications are dropped.
func (n *Notifier) Close() {
	n.closeOnce.Do(func() { close(n.done) })
	n.wg.Wait()
}

type nopMetrics struct{}

func (nopMetrics) RecordDelivery(string, string, time.Duration) {}
func (nopMetrics) RecordDeliveryError(string, string)           {}
func (nopMetrics) RecordSuppressed(string)                      {}
