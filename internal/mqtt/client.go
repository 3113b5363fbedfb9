package mqtt

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"path"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/logger"
	"github.com/echolens-ai/echolens/internal/observability/metrics"
	"github.com/echolens-ai/echolens/internal/privacy"
)

// client implements the Client interface.
type client struct {
	config          Config
	internalClient  paho.Client
	lastConnAttempt time.Time
	mu              sync.Mutex
	reconnecting    bool
	reconnectStop   chan struct{}
	stopOnce        sync.Once
	metrics         Metrics
	logger          logger.Logger
}

// NewClient creates a new MQTT client. The metrics may be nil.
func NewClient(config Config, m Metrics) Client {
	if m == nil {
		m = nopMetrics{}
	}
	return &client{
		config:        config,
		reconnectStop: make(chan struct{}),
		metrics:       m,
		logger:        GetLogger().With(logger.String("broker", privacy.RedactURL(config.Broker))),
	}
}

// Connect attempts to establish a connection to the MQTT broker.
// It first resolves the broker's hostname and then attempts to connect.
func (c *client) Connect(ctx context.Context) error {
	err := c.connect(ctx)
	if err != nil && ctx.Err() == nil && errors.IsCategory(err, errors.CategoryMQTTConnection) {
		c.startReconnect()
	}
	return err
}

func (c *client) connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if since := time.Since(c.lastConnAttempt); since < c.config.ReconnectCooldown {
		return connectionError(fmt.Errorf("connection attempt too recent, last attempt was %v ago", since), c.config.Broker)
	}
	c.lastConnAttempt = time.Now()

	u, err := url.Parse(c.config.Broker)
	if err != nil {
		return errors.New(fmt.Errorf("invalid broker URL: %w", err)).
			Component(ComponentMQTT).
			Category(errors.CategoryConfiguration).
			Context("broker", c.config.Broker).
			Build()
	}

	host := u.Hostname()
	if host == "" {
		return errors.Newf("broker URL %q has no host", c.config.Broker).
			Component(ComponentMQTT).
			Category(errors.CategoryConfiguration).
			Build()
	}
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return connectionError(fmt.Errorf("failed to resolve hostname %s: %w", host, err), c.config.Broker)
		}
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(c.config.MaxReconnectDelay)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)

	c.internalClient = paho.NewClient(opts)

	token := c.internalClient.Connect()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return connectionError(ctx.Err(), c.config.Broker)
	case <-time.After(c.config.ConnectTimeout):
		return connectionError(fmt.Errorf("connection timeout"), c.config.Broker)
	}
	if err := token.Error(); err != nil {
		return connectionError(err, c.config.Broker)
	}

	c.metrics.SetConnected(true)
	return nil
}

// Publish sends a message to the specified topic on the MQTT broker.
func (c *client) Publish(ctx context.Context, topic, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isConnected() {
		return ErrNotConnected
	}

	start := time.Now()
	label := path.Base(topic)
	failed := func(err error) error {
		c.metrics.RecordPublish(label, metrics.StatusError, len(payload), time.Since(start))
		return publishError(err, topic)
	}

	token := c.internalClient.Publish(topic, 0, c.config.Retain, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return failed(ctx.Err())
	case <-time.After(c.config.PublishTimeout):
		c.logger.Warn("Publish timeout", logger.String("topic", topic))
		return failed(fmt.Errorf("publish timeout"))
	}
	if err := token.Error(); err != nil {
		return failed(err)
	}

	c.metrics.RecordPublish(label, metrics.StatusSuccess, len(payload), time.Since(start))
	c.logger.Trace("Published message", logger.String("topic", topic), logger.Int("size", len(payload)))
	return nil
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isConnected()
}

func (c *client) isConnected() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.stopOnce.Do(func() { close(c.reconnectStop) })

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isConnected() {
		c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
		c.metrics.SetConnected(false)
		c.logger.Info("Disconnected from MQTT broker")
	}
}

func (c *client) onConnect(paho.Client) {
	c.logger.Info("Connected to MQTT broker")
	c.metrics.SetConnected(true)
}

func (c *client) onConnectionLost(_ paho.Client, err error) {
	c.logger.Warn("Connection to MQTT broker lost", logger.Error(err))
	c.metrics.SetConnected(false)
	c.metrics.RecordConnectionError()
}

func (c *client) onReconnecting(paho.Client, *paho.ClientOptions) {
	c.metrics.RecordReconnect()
}

// startReconnect retries a failed initial connection with exponential backoff.
func (c *client) startReconnect() {
	c.mu.Lock()
	if c.reconnecting {
		c.mu.Unlock()
		return
	}
	c.reconnecting = true
	c.mu.Unlock()

	go c.reconnectWithBackoff()
}

func (c *client) reconnectWithBackoff() {
	defer func() {
		c.mu.Lock()
		c.reconnecting = false
		c.mu.Unlock()
	}()

	backoff := max(c.config.ReconnectCooldown, time.Second)
	for {
		select {
		case <-time.After(backoff):
		case <-c.reconnectStop:
			return
		}

		c.metrics.RecordReconnect()
		ctx, cancel := context.WithTimeout(context.Background(), c.config.ConnectTimeout)
		err := c.connect(ctx)
		cancel()
		if err == nil {
			c.logger.Info("Successfully reconnected to MQTT broker")
			return
		}

		c.metrics.RecordConnectionError()
		backoff = min(backoff*2, c.config.MaxReconnectDelay)
		c.logger.Warn("Failed to reconnect to MQTT broker",
			logger.Error(err),
			logger.Duration("retry_in", backoff))
	}
}

func connectionError(err error, broker string) error {
	return errors.New(err).
		Component(ComponentMQTT).
		Category(errors.CategoryMQTTConnection).
		Context("broker", broker).
		Build()
}

func publishError(err error, topic string) error {
	return errors.New(err).
		Component(ComponentMQTT).
		Category(errors.CategoryMQTTPublish).
		Context("topic", topic).
		Build()
}

type nopMetrics struct{}

func (nopMetrics) SetConnected(bool)                                {}
func (nopMetrics) RecordPublish(string, string, int, time.Duration) {}
func (nopMetrics) RecordConnectionError()                           {}
func (nopMetrics) RecordReconnect()                                 {}
