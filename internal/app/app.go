// Package app assembles the EchoLens services from the application settings.
package app

import (
	"context"
	"fmt"
	"slices"

	"github.com/echolens-ai/echolens/internal/api"
	v2 "github.com/echolens-ai/echolens/internal/api/v2"
	"github.com/echolens-ai/echolens/internal/chat"
	"github.com/echolens-ai/echolens/internal/classifier"
	"github.com/echolens-ai/echolens/internal/conf"
	"github.com/echolens-ai/echolens/internal/datastore"
	"github.com/echolens-ai/echolens/internal/detection"
	"github.com/echolens-ai/echolens/internal/emotion"
	"github.com/echolens-ai/echolens/internal/llm"
	"github.com/echolens-ai/echolens/internal/logger"
	"github.com/echolens-ai/echolens/internal/mqtt"
	"github.com/echolens-ai/echolens/internal/notification"
	"github.com/echolens-ai/echolens/internal/observability"
	"github.com/echolens-ai/echolens/internal/observability/metrics"
	"github.com/echolens-ai/echolens/internal/pipeline"
	"github.com/echolens-ai/echolens/internal/preferences"
	"github.com/echolens-ai/echolens/internal/privacy"
	"github.com/echolens-ai/echolens/internal/robot"
	"github.com/echolens-ai/echolens/internal/speech"
)

// chatHistoryPerSession bounds in-memory chat history when no database is configured.
const chatHistoryPerSession = 50

// GetLogger returns the app logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("app")
}

// App holds every service built from the settings. Optional services are
// nil when disabled or unavailable.
type App struct {
	Settings *conf.Settings
	Metrics  *observability.Metrics

	Store       datastore.Interface
	Preferences *preferences.Store
	Completer   llm.Completer
	Analyzer    *emotion.Service
	Recognizer  speech.Recognizer
	Classifier  classifier.Classifier
	Chat        *chat.Service
	MQTT        mqtt.Client
	Robot       *robot.Controller
	Pipeline    *pipeline.Pipeline
	Retention   *datastore.Retention

	mqttTopic string
	handlers  []detection.Handler
	closers   []func()
	logger    logger.Logger
}

// New builds the services. Remote services that are enabled but cannot be
// created are logged and left disabled; a database that fails to open is an error.
func New(ctx context.Context, settings *conf.Settings) (*App, error) {
	a := &App{Settings: settings, logger: GetLogger()}

	m, err := observability.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	a.Metrics = m

	steps := []func(context.Context) error{
		a.initStore,
		a.initPreferences,
		a.initAI,
		a.initClassifier,
		a.initMQTT,
		a.initNotifier,
		a.initRobot,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			a.Close()
			return nil, err
		}
	}
	a.initPipeline()
	return a, nil
}

func (a *App) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

func (a *App) initStore(context.Context) error {
	store := datastore.New(a.Settings)
	if store == nil {
		a.logger.Info("no database configured, results are kept in memory only")
		return nil
	}
	if s, ok := store.(interface{ SetMetrics(metrics.Recorder) }); ok {
		s.SetMetrics(a.Metrics.Datastore)
	}
	if err := store.Open(); err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	a.Store = store
	a.onClose(func() {
		if err := store.Close(); err != nil {
			a.logger.Warn("failed to close database", logger.Error(err))
		}
	})

	if a.Settings.Output.Retention.Enabled {
		r, err := datastore.NewRetention(store, &a.Settings.Output.Retention, a.Metrics.Datastore)
		if err != nil {
			return fmt.Errorf("invalid retention settings: %w", err)
		}
		a.Retention = r
	}
	return nil
}

func (a *App) initPreferences(ctx context.Context) error {
	var persister preferences.Persister
	if a.Store != nil {
		persister = a.Store
	}
	a.Preferences = preferences.NewStore(preferences.FromSettings(&a.Settings.Preferences), persister)
	if err := a.Preferences.Load(ctx); err != nil {
		a.logger.Warn("failed to load stored preferences, using defaults", logger.Error(err))
	}
	return nil
}

func (a *App) initAI(ctx context.Context) error {
	g := a.Settings.Gemini
	if g.Enabled {
		client, err := llm.New(llm.Config{
			APIKey:      g.APIKey,
			BaseURL:     g.BaseURL,
			Model:       g.Model,
			Temperature: g.Temperature,
			Timeout:     g.Timeout,
			RateLimit:   g.RateLimit,
			Metrics:     a.Metrics.Remote.LLM,
		})
		if err != nil {
			a.logger.Warn("generative AI unavailable, using keyword fallbacks", logger.Error(err))
		} else {
			a.Completer = client
		}
	}
	a.Analyzer = emotion.NewService(a.Completer, g.CacheTTL)

	var history chat.HistoryStore = chat.NewMemoryHistory(chatHistoryPerSession)
	if a.Store != nil {
		history = a.Store
	}
	a.Chat = chat.NewService(a.Completer, history)

	s := a.Settings.Speech
	if s.Enabled {
		rec, err := speech.NewGoogle(ctx, speech.Config{
			APIKey:   s.APIKey,
			Endpoint: s.Endpoint,
			Language: s.Language,
			Timeout:  s.Timeout,
			Metrics:  a.Metrics.Remote.Speech,
		})
		if err != nil {
			a.logger.Warn("speech recognition unavailable", logger.Error(err))
		} else {
			a.Recognizer = rec
		}
	}
	return nil
}

func (a *App) initClassifier(context.Context) error {
	c := a.Settings.Classifier
	if !c.Enabled {
		return nil
	}
	model, err := classifier.NewTFLite(classifier.Config{
		ModelPath:  c.ModelPath,
		LabelsPath: c.LabelsPath,
		Threads:    c.Threads,
		Threshold:  c.Threshold,
		TopK:       c.TopK,
	})
	if err != nil {
		a.logger.Warn("sound classifier unavailable", logger.Error(err))
		return nil
	}
	a.Classifier = model
	a.onClose(func() {
		if err := model.Close(); err != nil {
			a.logger.Warn("failed to close classifier", logger.Error(err))
		}
	})
	return nil
}

func (a *App) initMQTT(ctx context.Context) error {
	if !a.Settings.MQTT.Enabled {
		return nil
	}
	cfg := mqtt.ConfigFromSettings(&a.Settings.MQTT, a.Settings.Main.Name)
	client := mqtt.NewClient(cfg, a.Metrics.MQTT)
	if err := client.Connect(ctx); err != nil {
		// the client keeps reconnecting in the background
		a.logger.Warn("MQTT broker not reachable yet", logger.String("broker", privacy.RedactURL(cfg.Broker)), logger.Error(err))
	}
	a.MQTT = client
	a.mqttTopic = cfg.Topic
	a.onClose(client.Disconnect)

	pub := mqtt.NewPublisher(client, cfg, a.Settings.Main.Name, 0)
	a.handlers = append(a.handlers, pub)
	a.onClose(pub.Close)
	return nil
}

func (a *App) initNotifier(context.Context) error {
	n := a.Settings.Notification
	if !n.Enabled {
		return nil
	}
	cfg := notification.ConfigFromSettings(&n, a.Settings.Main.Name)
	provider, err := notification.NewShoutrrrProvider("shoutrrr", n.URLs, cfg.Timeout)
	if err != nil {
		a.logger.Warn("push notifications unavailable", logger.Error(err))
		return nil
	}
	notifier, err := notification.NewNotifier(cfg, []notification.Provider{provider}, a.Preferences, a.Metrics.Notification)
	if err != nil {
		a.logger.Warn("push notifications unavailable", logger.Error(err))
		return nil
	}
	a.handlers = append(a.handlers, notifier)
	a.onClose(notifier.Close)
	return nil
}

func (a *App) initRobot(context.Context) error {
	r := a.Settings.Robot
	if !r.Enabled {
		return nil
	}
	var actuator robot.Actuator
	if r.Actuator == "mqtt" {
		if a.MQTT == nil {
			return fmt.Errorf("robot actuator mqtt requires MQTT to be enabled")
		}
		actuator = robot.NewMQTTActuator(a.MQTT, mqtt.Topic(a.mqttTopic, mqtt.SubtopicRobot))
	}
	a.Robot = robot.NewController(actuator)
	a.handlers = append(a.handlers, a.Robot)
	a.onClose(a.Robot.Close)
	return nil
}

func (a *App) initPipeline() {
	deps := pipeline.Deps{
		Classifier:  a.Classifier,
		Recognizer:  a.Recognizer,
		Analyzer:    a.Analyzer,
		Completer:   a.Completer,
		Preferences: a.Preferences,
		Handlers:    a.handlers,
		Metrics:     a.Metrics.Pipeline,
	}
	if a.Store != nil {
		deps.Repository = a.Store
	}
	if a.Robot != nil {
		deps.OnRunning = a.Robot.SetListening
	}
	a.Pipeline = pipeline.New(pipeline.ConfigFromSettings(&a.Settings.Audio), deps)
}

// APIOptions returns the controller options exposing the optional services.
func (a *App) APIOptions() []v2.Option {
	opts := []v2.Option{
		v2.WithAnalyzer(a.Analyzer),
		v2.WithChat(a.Chat),
	}
	if a.Store != nil {
		opts = append(opts, v2.WithDataStore(a.Store))
	}
	if a.Completer != nil {
		opts = append(opts, v2.WithCompleter(a.Completer))
	}
	if a.Robot != nil {
		opts = append(opts, v2.WithRobot(a.Robot))
	}
	if a.Classifier != nil {
		opts = append(opts, v2.WithClassifier(a.Classifier))
	}
	if a.Recognizer != nil {
		opts = append(opts, v2.WithRecognizer(a.Recognizer))
	}
	return opts
}

// NewServer creates the HTTP server driving the pipeline.
func (a *App) NewServer() (*api.Server, error) {
	return api.New(a.Settings, a.Pipeline,
		api.WithMetrics(a.Metrics),
		api.WithAPIOptions(a.APIOptions()...))
}

// Close releases every service in reverse creation order. The pipeline
// must be stopped first.
func (a *App) Close() {
	for _, fn := range slices.Backward(a.closers) {
		fn()
	}
	a.closers = nil
}
