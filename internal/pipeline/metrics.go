package pipeline

// Metrics receives pipeline measurements. The observability package
// provides the Prometheus implementation.
type Metrics interface {
	RecordFrame(source string)
	RecordEmptyRead()
	RecordStageError(stage string)
	RecordSoundAlert(priority string)
	RecordTranscription(analysisSource string)
	SetInFlightTasks(n int)
	RecordModeSwitch(mode string)
	RecordThrottled()
	SetRunning(running bool)
}

type nopMetrics struct{}

func (nopMetrics) RecordFrame(string)         {}
func (nopMetrics) RecordEmptyRead()           {}
func (nopMetrics) RecordStageError(string)    {}
func (nopMetrics) RecordSoundAlert(string)    {}
func (nopMetrics) RecordTranscription(string) {}
func (nopMetrics) SetInFlightTasks(int)       {}
func (nopMetrics) RecordModeSwitch(string)    {}
func (nopMetrics) RecordThrottled()           {}
func (nopMetrics) SetRunning(bool)            {}
