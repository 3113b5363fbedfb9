// Package telemetry provides opt-in, privacy-filtered error reporting to Sentry.
package telemetry

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/echolens-ai/echolens/internal/conf"
	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/logger"
	"github.com/echolens-ai/echolens/internal/privacy"
)

// DefaultFlushTimeout bounds the final flush on shutdown.
const DefaultFlushTimeout = 2 * time.Second

var initialized atomic.Bool

// InitSentry initializes the Sentry SDK when error reporting is enabled and
// registers it as the reporter of built errors. It is a no-op when disabled.
func InitSentry(settings *conf.Settings) error {
	if !settings.Sentry.Enabled {
		GetLogger().Debug("Sentry error reporting is disabled (opt-in required)")
		return nil
	}
	return initSentry(settings, sentry.ClientOptions{Dsn: settings.Sentry.DSN})
}

func initSentry(settings *conf.Settings, opts sentry.ClientOptions) error {
	opts.SampleRate = settings.Sentry.SampleRate
	opts.Environment = settings.Sentry.Environment
	opts.Release = "echolens@" + settings.Version
	// hostnames identify users
	opts.ServerName = ""
	opts.AttachStacktrace = false
	opts.BeforeSend = func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
		return applyPrivacyFilters(event)
	}

	if err := sentry.Init(opts); err != nil {
		return errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("os", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
		scope.SetContext("application", map[string]any{
			"name":    "EchoLens",
			"version": settings.Version,
			"mode":    settings.Audio.Mode,
		})
	})

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	initialized.Store(true)

	GetLogger().Info("Sentry error reporting enabled",
		logger.String("environment", settings.Sentry.Environment),
		logger.Float64("sample_rate", settings.Sentry.SampleRate))
	return nil
}

// applyPrivacyFilters drops identifying fields and scrubs messages.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Request = nil

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	for k := range event.Extra {
		if k != "component" && k != "error_type" {
			delete(event.Extra, k)
		}
	}

	event.Message = privacy.ScrubMessage(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}
	for i := range event.Breadcrumbs {
		event.Breadcrumbs[i].Message = privacy.ScrubMessage(event.Breadcrumbs[i].Message)
	}
	return event
}

// CaptureMessage reports a message when Sentry is enabled.
func CaptureMessage(message string, level sentry.Level, component string) {
	if !initialized.Load() {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(level)
		scope.SetTag("component", component)
		sentry.CaptureMessage(privacy.ScrubMessage(message))
	})
}

// RecoverPanic reports a recovered panic value and re-panics. Use it as
// `defer telemetry.RecoverPanic("component")` at goroutine entry points.
func RecoverPanic(component string) {
	r := recover()
	if r == nil {
		return
	}
	if initialized.Load() {
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("component", component)
			scope.SetLevel(sentry.LevelFatal)
			sentry.CurrentHub().Recover(r)
		})
		sentry.Flush(DefaultFlushTimeout)
	}
	panic(r)
}

// Flush waits for buffered events and detaches the error reporter.
func Flush(timeout time.Duration) {
	if !initialized.CompareAndSwap(true, false) {
		return
	}
	errors.SetTelemetryReporter(nil)
	if !sentry.Flush(timeout) {
		GetLogger().Warn("Sentry flush timed out", logger.Duration("timeout", timeout))
	}
}
