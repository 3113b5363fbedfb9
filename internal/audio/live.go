package audio

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/smallnest/ringbuffer"

	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/logger"
)

const bytesPerSample = 2 // 16-bit PCM

// LiveConfig configures a LiveSource.
type LiveConfig struct {
	Device        string        // device name or id, empty for the system default
	SampleRate    int           // capture sample rate in Hz
	Channels      int           // 1 or 2
	FrameDuration time.Duration // length of one frame
	QueueSeconds  int           // ring buffer capacity in seconds of audio
}

func (c LiveConfig) withDefaults() LiveConfig {
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	if c.Channels <= 0 {
		c.Channels = 2
	}
	if c.FrameDuration <= 0 {
		c.FrameDuration = time.Second
	}
	if c.QueueSeconds <= 0 {
		c.QueueSeconds = 5
	}
	return c
}

func (c LiveConfig) frameBytes() int {
	samples := int(int64(c.SampleRate) * int64(c.FrameDuration) / int64(time.Second))
	return samples * c.Channels * bytesPerSample
}

func (c LiveConfig) queueBytes() int {
	return c.SampleRate * c.Channels * bytesPerSample * c.QueueSeconds
}

// captureDevice is an opened capture device.
type captureDevice interface {
	Start() error
	Stop() error
	Close()
	Name() string
}

// deviceOpener opens a capture device that delivers interleaved s16 PCM to onData.
type deviceOpener func(cfg LiveConfig, onData func(pcm []byte)) (captureDevice, error)

// LiveSource captures audio from a sound card.
type LiveSource struct {
	cfg        LiveConfig
	open       deviceOpener
	frameBytes int

	mu      sync.Mutex // guards device and running transitions
	device  captureDevice
	ring    *ringbuffer.RingBuffer
	ready   chan struct{}
	running atomic.Bool

	dropped atomic.Uint64 // bytes dropped because the queue was full
	logger  logger.Logger
}

// NewLiveSource creates a live capture source backed by miniaudio.
func NewLiveSource(cfg LiveConfig) *LiveSource {
	return newLiveSource(cfg, openMalgoDevice)
}

func newLiveSource(cfg LiveConfig, open deviceOpener) *LiveSource {
	cfg = cfg.withDefaults()
	return &LiveSource{
		cfg:        cfg,
		open:       open,
		frameBytes: cfg.frameBytes(),
		ring:       ringbuffer.New(cfg.queueBytes()),
		ready:      make(chan struct{}, 1),
		logger:     GetLogger().With(logger.String("source", "live")),
	}
}

// Name returns the source name.
func (s *LiveSource) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device != nil {
		return "live:" + s.device.Name()
	}
	return "live"
}

// Start opens and starts the capture device. A device that cannot be opened
// yields an error matching ErrDeviceUnavailable.
func (s *LiveSource) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return nil
	}

	s.ring.Reset()
	s.dropped.Store(0)

	device, err := s.open(s.cfg, s.onData)
	if err != nil {
		return errors.New(fmt.Errorf("open capture device: %w", err)).
			Component(ComponentAudio).
			Category(errors.CategoryAudioDevice).
			Context("device", s.cfg.Device).
			Context("sample_rate", s.cfg.SampleRate).
			Context("channels", s.cfg.Channels).
			Build()
	}

	// running must be set before the first callback can fire
	s.running.Store(true)
	if err := device.Start(); err != nil {
		s.running.Store(false)
		device.Close()
		return errors.New(fmt.Errorf("start capture device: %w", err)).
			Component(ComponentAudio).
			Category(errors.CategoryAudioDevice).
			Context("device", device.Name()).
			Build()
	}
	s.device = device

	s.logger.Info("capture started",
		logger.String("device", device.Name()),
		logger.Int("sample_rate", s.cfg.SampleRate),
		logger.Int("channels", s.cfg.Channels),
		logger.Duration("frame", s.cfg.FrameDuration))
	return nil
}

// Stop stops and releases the capture device.
func (s *LiveSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.Swap(false) {
		return nil
	}

	var err error
	if s.device != nil {
		err = s.device.Stop()
		s.device.Close()
		s.device = nil
	}

	// wake a reader blocked in NextFrame
	select {
	case s.ready <- struct{}{}:
	default:
	}

	if dropped := s.dropped.Load(); dropped > 0 {
		s.logger.Warn("capture queue overflowed during session", logger.Int64("dropped_bytes", int64(dropped)))
	}
	s.logger.Info("capture stopped")
	return err
}

// onData is the device callback. It must never block.
func (s *LiveSource) onData(pcm []byte) {
	if !s.running.Load() || len(pcm) == 0 {
		return
	}

	// drop whole chunks so frames stay sample aligned
	if s.ring.Free() < len(pcm) {
		s.dropped.Add(uint64(len(pcm)))
		return
	}
	if _, err := s.ring.Write(pcm); err != nil {
		s.dropped.Add(uint64(len(pcm)))
		return
	}

	select {
	case s.ready <- struct{}{}:
	default:
	}
}

// Dropped returns the number of PCM bytes dropped because the queue was full.
func (s *LiveSource) Dropped() uint64 {
	return s.dropped.Load()
}

// NextFrame waits up to timeout for a full frame.
func (s *LiveSource) NextFrame(ctx context.Context, timeout time.Duration) (Frame, error) {
	if !s.running.Load() {
		return Frame{}, ErrNotStarted
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if s.ring.Length() >= s.frameBytes {
			return s.readFrame()
		}
		if !s.running.Load() {
			return Frame{}, ErrNoFrame
		}

		select {
		case <-s.ready:
		case <-timer.C:
			return Frame{}, ErrNoFrame
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		}
	}
}

func (s *LiveSource) readFrame() (Frame, error) {
	buf := make([]byte, s.frameBytes)
	n, err := s.ring.Read(buf)
	if err != nil {
		return Frame{}, errors.New(fmt.Errorf("read capture queue: %w", err)).
			Component(ComponentAudio).
			Category(errors.CategoryAudioSource).
			Build()
	}
	return Frame{
		Channels:   DeinterleaveS16(buf[:n], s.cfg.Channels),
		SampleRate: s.cfg.SampleRate,
		Timestamp:  time.Now(),
	}, nil
}
