package mqtt

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/echolens-ai/echolens/internal/detection"
	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/logger"
)

// DefaultQueueSize is the number of messages a Publisher buffers.
const DefaultQueueSize = 64

type message struct {
	topic   string
	payload string
}

// Publisher implements detection.Handler by publishing results as JSON.
// Messages are queued and sent by a background worker so the processing
// loop never waits on the broker.
type Publisher struct {
	client  Client
	topic   string
	node    string
	timeout time.Duration
	queue   chan message
	logger  logger.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
	done      chan struct{}
}

// NewPublisher creates a publisher and starts its worker. Close stops it.
func NewPublisher(client Client, cfg Config, node string, queueSize int) *Publisher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultConfig().PublishTimeout
	}
	p := &Publisher{
		client:  client,
		topic:   cfg.Topic,
		node:    node,
		timeout: cfg.PublishTimeout,
		queue:   make(chan message, queueSize),
		logger:  GetLogger().With(logger.String("topic", cfg.Topic)),
		done:    make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p
}

// HandleSoundAlert queues an alert for <topic>/sounds.
func (p *Publisher) HandleSoundAlert(_ context.Context, a detection.SoundAlert) error {
	return p.enqueue(Topic(p.topic, SubtopicSounds), NewSoundAlertDTO(p.node, &a))
}

// HandleTranscription queues a transcription for <topic>/transcriptions.
func (p *Publisher) HandleTranscription(_ context.Context, t detection.Transcription) error {
	return p.enqueue(Topic(p.topic, SubtopicTranscriptions), NewTranscriptionDTO(p.node, &t))
}

func (p *Publisher) enqueue(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.New(err).
			Component(ComponentMQTT).
			Category(errors.CategoryMQTTPublish).
			Context("topic", topic).
			Build()
	}

	select {
	case <-p.done:
		return ErrNotConnected
	default:
	}

	select {
	case p.queue <- message{topic: topic, payload: string(payload)}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case msg := <-p.queue:
			p.send(msg)
		case <-p.done:
			return
		}
	}
}

func (p *Publisher) send(msg message) {
	if !p.client.IsConnected() {
		p.logger.Debug("Dropping message, broker not connected", logger.String("topic", msg.topic))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.client.Publish(ctx, msg.topic, msg.payload); err != nil {
		p.logger.Warn("Failed to publish message", logger.String("topic", msg.topic), logger.Error(err))
	}
}

// Close stops the worker. Queued messages that were not sent are dropped.
func (p *Publisher) Close() {
	p.closeOnce.Do(func() { close(p.done) })
	p.wg.Wait()
}
