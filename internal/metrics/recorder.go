package metrics

import "time"

// ResultLabel enumerates pipeline run outcomes for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultAborted  ResultLabel = "aborted"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// Recorder defines observability hooks for pipeline runs.
type Recorder interface {
	ObservePipelineDuration(pipeline string, d time.Duration)
	IncPipelineResult(pipeline string, result ResultLabel)
	AddFiles(pipeline string, written, skipped int)
	IncReloadBroadcast(kind string)
	SetReloadClients(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePipelineDuration(string, time.Duration) {}
func (NoopRecorder) IncPipelineResult(string, ResultLabel)         {}
func (NoopRecorder) AddFiles(string, int, int)                     {}
func (NoopRecorder) IncReloadBroadcast(string)                     {}
func (NoopRecorder) SetReloadClients(int)                          {}
