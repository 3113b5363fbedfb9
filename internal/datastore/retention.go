package datastore

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/echolens-ai/echolens/internal/conf"
	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/logger"
	"github.com/echolens-ai/echolens/internal/observability/metrics"
)

// RetentionRecorder records retention job runs.
type RetentionRecorder interface {
	RecordRetentionRun(status string, deleted map[string]int64)
}

// Retention periodically deletes records older than a maximum age.
type Retention struct {
	store    Interface
	maxAge   time.Duration
	schedule string
	metrics  RetentionRecorder
	now      func() time.Time
	cron     *cron.Cron

	mu      sync.Mutex
	running bool
}

// NewRetention creates a retention job from the retention settings. The
// recorder may be nil.
func NewRetention(store Interface, settings *conf.RetentionSettings, recorder RetentionRecorder) (*Retention, error) {
	maxAge, err := conf.ParseRetentionPeriod(settings.MaxAge)
	if err != nil {
		return nil, errors.New(err).
			Component(ComponentDatastore).
			Category(errors.CategoryConfiguration).
			Context("max_age", settings.MaxAge).
			Build()
	}

	r := &Retention{
		store:    store,
		maxAge:   maxAge,
		schedule: settings.Schedule,
		metrics:  recorder,
		now:      time.Now,
		cron:     cron.New(),
	}
	if _, err := r.cron.AddFunc(settings.Schedule, func() { _, _ = r.Run(context.Background()) }); err != nil {
		return nil, errors.New(err).
			Component(ComponentDatastore).
			Category(errors.CategoryConfiguration).
			Context("schedule", settings.Schedule).
			Build()
	}
	return r, nil
}

// Start runs the job on its schedule until Stop.
func (r *Retention) Start() {
	r.cron.Start()
	GetLogger().Info("Retention job scheduled",
		logger.String("schedule", r.schedule),
		logger.Duration("max_age", r.maxAge))
}

// Stop stops the schedule and waits for a running job to finish.
func (r *Retention) Stop() {
	<-r.cron.Stop().Done()
}

// Run deletes expired records once. Overlapping runs are skipped.
func (r *Retention) Run(ctx context.Context) (map[string]int64, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		GetLogger().Debug("Retention job already running, skipping")
		return nil, nil
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	cutoff := r.now().Add(-r.maxAge)
	deleted, err := r.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		r.record(metrics.StatusError, nil)
		GetLogger().Error("Retention job failed", logger.Error(err))
		return nil, err
	}

	r.record(metrics.StatusSuccess, deleted)
	GetLogger().Info("Retention job completed",
		logger.Any("deleted", deleted),
		logger.String("cutoff", cutoff.Format(time.RFC3339)))
	return deleted, nil
}

func (r *Retention) record(status string, deleted map[string]int64) {
	if r.metrics != nil {
		r.metrics.RecordRetentionRun(status, deleted)
	}
}
