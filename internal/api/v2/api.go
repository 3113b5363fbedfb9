// internal/api/v2/api.go
package api

import (
	"context"
	"crypto/rand"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/patrickmn/go-cache"

	mw "github.com/echolens-ai/echolens/internal/api/middleware"
	"github.com/echolens-ai/echolens/internal/chat"
	"github.com/echolens-ai/echolens/internal/classifier"
	"github.com/echolens-ai/echolens/internal/conf"
	"github.com/echolens-ai/echolens/internal/datastore"
	"github.com/echolens-ai/echolens/internal/detection"
	"github.com/echolens-ai/echolens/internal/emotion"
	"github.com/echolens-ai/echolens/internal/llm"
	"github.com/echolens-ai/echolens/internal/logger"
	"github.com/echolens-ai/echolens/internal/observability"
	"github.com/echolens-ai/echolens/internal/pipeline"
	"github.com/echolens-ai/echolens/internal/preferences"
	"github.com/echolens-ai/echolens/internal/robot"
	"github.com/echolens-ai/echolens/internal/speech"
)

// GetLogger returns the REST API logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// PipelineService is the part of the audio pipeline driven over HTTP.
type PipelineService interface {
	Status() pipeline.Status
	SetMode(ctx context.Context, mode pipeline.Mode) error
	Start(ctx context.Context) (string, error)
	Stop(ctx context.Context) (string, error)
	AudioLevels() []float64
	Transcriptions(limit, page int, emotion string) detection.Page[detection.Transcription]
	SoundAlerts(limit, page int, priority detection.Priority) detection.Page[detection.SoundAlert]
	ClearData()
	Preferences() *preferences.Store
}

// ChatService answers chat messages and keeps per-session history.
type ChatService interface {
	Reply(ctx context.Context, req chat.Request) (chat.Response, error)
	History(ctx context.Context, sessionID string, limit int) ([]chat.Message, error)
	ClearHistory(ctx context.Context, sessionID string) error
}

// RobotService triggers and reports companion robot reactions.
type RobotService interface {
	React(ctx context.Context, emotion string, confidence float64) (robot.Command, error)
	Status() robot.Status
}

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings
	Pipeline PipelineService

	// Optional collaborators, injected with options.
	DS         datastore.Interface
	Analyzer   emotion.Analyzer
	Completer  llm.Completer
	Chat       ChatService
	Robot      RobotService
	Classifier classifier.Classifier
	Recognizer speech.Recognizer

	metrics    *observability.Metrics
	queryCache *cache.Cache // history queries against the datastore
	startTime  time.Time
	logger     logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup // level streams
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithDataStore enables history queries and persistence of manual analyses.
func WithDataStore(ds datastore.Interface) Option {
	return func(c *Controller) { c.DS = ds }
}

// WithAnalyzer sets the emotion analyzer used by /analyze routes.
func WithAnalyzer(a emotion.Analyzer) Option {
	return func(c *Controller) { c.Analyzer = a }
}

// WithCompleter sets the generative AI client reported by /health.
func WithCompleter(cmp llm.Completer) Option {
	return func(c *Controller) { c.Completer = cmp }
}

// WithChat sets the chat service.
func WithChat(s ChatService) Option {
	return func(c *Controller) { c.Chat = s }
}

// WithRobot sets the robot controller.
func WithRobot(r RobotService) Option {
	return func(c *Controller) { c.Robot = r }
}

// WithClassifier sets the sound classifier used for uploaded audio.
func WithClassifier(cl classifier.Classifier) Option {
	return func(c *Controller) { c.Classifier = cl }
}

// WithRecognizer sets the speech recognizer used for uploaded audio.
func WithRecognizer(r speech.Recognizer) Option {
	return func(c *Controller) { c.Recognizer = r }
}

// WithMetrics sets the shared metrics instance.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// historyCacheTTL bounds how stale a cached datastore page can be.
const historyCacheTTL = 10 * time.Second

// Per client limits for the routes backed by remote AI services.
const (
	remoteRateLimit = 2.0
	remoteBurst     = 20
)

// New creates the API controller and registers its routes under /api.
func New(e *echo.Echo, settings *conf.Settings, p PipelineService, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		Echo:       e,
		Settings:   settings,
		Pipeline:   p,
		queryCache: cache.New(historyCacheTTL, 0),
		startTime:  time.Now(),
		logger:     GetLogger(),
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Analyzer == nil {
		c.Analyzer = emotion.NewService(nil, 0)
	}

	c.Group = e.Group("/api")
	c.initRoutes()
	return c
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)
	c.Group.GET("/audio/devices", c.GetAudioDevices)

	c.Group.GET("/status", c.GetStatus)
	c.Group.POST("/mode", c.SetMode)
	c.Group.POST("/start", c.StartPipeline)
	c.Group.POST("/stop", c.StopPipeline)

	c.Group.GET("/levels", c.GetLevels)
	c.Group.GET("/levels/stream", c.StreamLevels,
		mw.NewRateLimiter(levelStreamRateLimit, levelStreamBurst, time.Minute))

	c.Group.GET("/transcriptions", c.GetTranscriptions)
	c.Group.GET("/sounds", c.GetSoundAlerts)
	c.Group.DELETE("/data", c.ClearData)

	c.Group.GET("/preferences", c.GetPreferences)
	c.Group.PUT("/preferences", c.UpdatePreferences)

	// these call the remote AI services
	remote := mw.NewRateLimiter(remoteRateLimit, remoteBurst, time.Minute)
	c.Group.POST("/analyze/text", c.AnalyzeText, remote)
	c.Group.POST("/analyze/audio", c.AnalyzeAudio, remote)

	c.Group.POST("/chat", c.PostChat, remote)
	c.Group.GET("/chat/history", c.GetChatHistory)
	c.Group.DELETE("/chat/history", c.DeleteChatHistory)

	c.Group.GET("/robot", c.GetRobot)
	c.Group.POST("/robot/react", c.PostRobotReaction)
}

// Shutdown closes open level streams and waits for them to return.
func (c *Controller) Shutdown() {
	c.cancel()
	c.wg.Wait()
	c.queryCache.Flush()
	c.logger.Debug("API controller shut down")
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // identifies the matching log entry
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID returns an 8 character random identifier.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError logs err with a correlation id and writes the error response.
// Client errors log at debug, server errors at error.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code)

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", ctx.Request().URL.Path),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		c.logger.Error("API error", fields...)
	} else {
		c.logger.Debug("API request rejected", fields...)
	}

	return ctx.JSON(code, resp)
}
