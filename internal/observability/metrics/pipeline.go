package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics contains the Prometheus metrics of the audio event loop.
type PipelineMetrics struct {
	framesTotal         *prometheus.CounterVec
	emptyReadsTotal     prometheus.Counter
	stageErrorsTotal    *prometheus.CounterVec
	soundAlertsTotal    *prometheus.CounterVec
	transcriptionsTotal *prometheus.CounterVec
	inFlightTasks       prometheus.Gauge
	modeSwitchesTotal   *prometheus.CounterVec
	throttledTotal      prometheus.Counter
	running             prometheus.Gauge
}

// NewPipelineMetrics creates and registers the pipeline metrics.
func NewPipelineMetrics(registry *prometheus.Registry) (*PipelineMetrics, error) {
	m := &PipelineMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
	}
	return m, nil
}

func (m *PipelineMetrics) initMetrics() {
	m.framesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "echolens_pipeline_frames_total",
		Help: "Total number of audio frames processed",
	}, []string{"source"}) // source: live, demo

	m.emptyReadsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "echolens_pipeline_empty_reads_total",
		Help: "Total number of frame reads that timed out without audio",
	})

	m.stageErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "echolens_pipeline_stage_errors_total",
		Help: "Total number of failed pipeline stages",
	}, []string{"stage"}) // stage: source, levels, direction, classifier, speech, output

	m.soundAlertsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "echolens_sound_alerts_total",
		Help: "Total number of sound alerts produced",
	}, []string{"priority"})

	m.transcriptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "echolens_transcriptions_total",
		Help: "Total number of transcriptions produced",
	}, []string{"analysis"}) // analysis: remote, fallback, demo, disabled

	m.inFlightTasks = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "echolens_pipeline_speech_tasks_in_flight",
		Help: "Number of speech recognition tasks currently running",
	})

	m.modeSwitchesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "echolens_pipeline_mode_switches_total",
		Help: "Total number of pipeline mode switches",
	}, []string{"mode"})

	m.throttledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "echolens_pipeline_mode_throttled_total",
		Help: "Total number of mode switch requests rejected by the cooldown",
	})

	m.running = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "echolens_pipeline_running",
		Help: "Whether the processing loop is running (1) or stopped (0)",
	})
}

func (m *PipelineMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.framesTotal, m.emptyReadsTotal, m.stageErrorsTotal, m.soundAlertsTotal,
		m.transcriptionsTotal, m.inFlightTasks, m.modeSwitchesTotal, m.throttledTotal, m.running,
	}
}

// Describe implements the prometheus.Collector interface.
func (m *PipelineMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements the prometheus.Collector interface.
func (m *PipelineMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

// RecordFrame counts a processed frame.
func (m *PipelineMetrics) RecordFrame(source string) {
	m.framesTotal.WithLabelValues(source).Inc()
}

// RecordEmptyRead counts a frame read that timed out.
func (m *PipelineMetrics) RecordEmptyRead() {
	m.emptyReadsTotal.Inc()
}

// RecordStageError counts a failed stage.
func (m *PipelineMetrics) RecordStageError(stage string) {
	m.stageErrorsTotal.WithLabelValues(stage).Inc()
}

// RecordSoundAlert counts a sound alert by priority.
func (m *PipelineMetrics) RecordSoundAlert(priority string) {
	m.soundAlertsTotal.WithLabelValues(priority).Inc()
}

// RecordTranscription counts a transcription by emotion analysis source.
func (m *PipelineMetrics) RecordTranscription(analysisSource string) {
	m.transcriptionsTotal.WithLabelValues(analysisSource).Inc()
}

// SetInFlightTasks sets the number of running speech tasks.
func (m *PipelineMetrics) SetInFlightTasks(n int) {
	m.inFlightTasks.Set(float64(n))
}

// RecordModeSwitch counts a mode switch to mode.
func (m *PipelineMetrics) RecordModeSwitch(mode string) {
	m.modeSwitchesTotal.WithLabelValues(mode).Inc()
}

// RecordThrottled counts a rejected mode switch.
func (m *PipelineMetrics) RecordThrottled() {
	m.throttledTotal.Inc()
}

// SetRunning updates the running gauge.
func (m *PipelineMetrics) SetRunning(running bool) {
	if running {
		m.running.Set(1)
		return
	}
	m.running.Set(0)
}
