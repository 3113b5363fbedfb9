package classifier

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/klauspost/cpuid/v2"
	"github.com/tphakala/go-tflite"

	"github.com/echolens-ai/echolens/internal/errors"
	"github.com/echolens-ai/echolens/internal/logger"
)

// modelSampleRate is the input rate of YAMNet style sound models.
const modelSampleRate = 16000

// Config configures a TFLite classifier.
type Config struct {
	ModelPath  string
	LabelsPath string
	Threads    int     // 0 selects the number of physical cores
	Threshold  float64 // minimum reported confidence
	TopK       int     // maximum detections per call
}

// TFLite classifies sounds with a TensorFlow Lite model that takes a fixed
// window of 16 kHz mono waveform and outputs one score per label.
type TFLite struct {
	cfg         Config
	labels      []string
	model       *tflite.Model
	interpreter *tflite.Interpreter
	window      int // input samples per invocation

	mu     sync.Mutex // interpreter is not safe for concurrent use
	logger logger.Logger
}

// NewTFLite loads the model and labels.
func NewTFLite(cfg Config) (*TFLite, error) {
	start := time.Now()
	log := GetLogger()

	labels, err := LoadLabels(cfg.LabelsPath)
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, errors.New(fmt.Errorf("%w: %w", ErrModelLoad, err)).
			Component(ComponentClassifier).
			Category(errors.CategoryModelLoad).
			Context("model", filepath.Base(cfg.ModelPath)).
			Build()
	}

	model := tflite.NewModelFromFile(cfg.ModelPath)
	if model == nil {
		return nil, errors.New(fmt.Errorf("%w: cannot load TensorFlow Lite model", ErrModelLoad)).
			Component(ComponentClassifier).
			Category(errors.CategoryModelLoad).
			Context("model", filepath.Base(cfg.ModelPath)).
			Timing("model-load", time.Since(start)).
			Build()
	}

	threads := threadCount(cfg.Threads)
	options := tflite.NewInterpreterOptions()
	defer options.Delete()
	options.SetNumThread(threads)
	options.SetErrorReporter(func(msg string, _ any) {
		GetLogger().Error("TFLite error", logger.String("message", msg))
	}, nil)

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return nil, errors.New(fmt.Errorf("cannot create interpreter")).
			Component(ComponentClassifier).
			Category(errors.CategoryModelInit).
			Build()
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		model.Delete()
		return nil, errors.New(fmt.Errorf("tensor allocation failed: %v", status)).
			Component(ComponentClassifier).
			Category(errors.CategoryModelInit).
			Build()
	}

	input := interpreter.GetInputTensor(0)
	if input == nil || input.NumDims() == 0 {
		interpreter.Delete()
		model.Delete()
		return nil, errors.New(fmt.Errorf("model has no usable input tensor")).
			Component(ComponentClassifier).
			Category(errors.CategoryModelInit).
			Build()
	}
	window := input.Dim(input.NumDims() - 1)

	output := interpreter.GetOutputTensor(0)
	if output == nil || output.Dim(output.NumDims()-1) != len(labels) {
		interpreter.Delete()
		model.Delete()
		return nil, errors.New(fmt.Errorf("%w: model outputs do not match %d labels", ErrLabels, len(labels))).
			Component(ComponentClassifier).
			Category(errors.CategoryLabelLoad).
			Build()
	}

	log.Info("sound model initialized",
		logger.String("model", filepath.Base(cfg.ModelPath)),
		logger.Int("labels", len(labels)),
		logger.Int("window", window),
		logger.Int("threads", threads),
		logger.Duration("load_time", time.Since(start)))

	return &TFLite{
		cfg:         cfg,
		labels:      labels,
		model:       model,
		interpreter: interpreter,
		window:      window,
		logger:      log,
	}, nil
}

// Classify scores the audio window by window and reports the mean score per label.
func (c *TFLite) Classify(ctx context.Context, mono []float32, sampleRate int) []Detection {
	if len(mono) == 0 {
		return nil
	}
	samples := resample(mono, sampleRate, modelSampleRate)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.interpreter == nil {
		return nil
	}

	sums := make([]float64, len(c.labels))
	windows := 0
	for off := 0; off < len(samples); off += c.window {
		if ctx.Err() != nil {
			return nil
		}
		scores, err := c.invoke(samples[off:min(off+c.window, len(samples))])
		if err != nil {
			c.logger.Warn("sound classification failed", logger.Error(err))
			return nil
		}
		for i := range sums {
			sums[i] += float64(scores[i])
		}
		windows++
	}

	detections := make([]Detection, len(c.labels))
	for i, label := range c.labels {
		detections[i] = Detection{Label: label, Confidence: sums[i] / float64(windows)}
	}
	return rank(detections, c.cfg.Threshold, c.cfg.TopK)
}

// invoke runs one window, zero padded to the model input size.
func (c *TFLite) invoke(chunk []float32) ([]float32, error) {
	input := c.interpreter.GetInputTensor(0)
	if input == nil {
		return nil, fmt.Errorf("cannot get input tensor")
	}
	buf := input.Float32s()
	n := copy(buf, chunk)
	clear(buf[n:])

	if status := c.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("tensor invoke failed: %v", status)
	}

	output := c.interpreter.GetOutputTensor(0)
	if output == nil {
		return nil, fmt.Errorf("cannot get output tensor")
	}
	raw := output.Float32s()

	// multi-frame outputs (frames x labels) are averaged over frames
	n = len(c.labels)
	if len(raw) <= n {
		return raw, nil
	}
	frames := len(raw) / n
	scores := make([]float32, n)
	for f := range frames {
		for i := range n {
			scores[i] += raw[f*n+i] / float32(frames)
		}
	}
	return scores, nil
}

// Close releases the interpreter and model.
func (c *TFLite) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interpreter != nil {
		c.interpreter.Delete()
		c.interpreter = nil
	}
	if c.model != nil {
		c.model.Delete()
		c.model = nil
	}
	return nil
}

// threadCount limits configured threads to the system; 0 selects the physical core count.
func threadCount(configured int) int {
	system := runtime.NumCPU()
	if configured <= 0 {
		if cores := cpuid.CPU.PhysicalCores; cores > 0 {
			return min(cores, system)
		}
		return system
	}
	return min(configured, system)
}
