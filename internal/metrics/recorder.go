package metrics

import "time"

// ResultLabel enumerates tool invocation result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed" // exit policy violated or outputs missing
	ResultLaunch  ResultLabel = "launch" // process could not be started
)

// Recorder defines observability hooks for tool and build metrics.
type Recorder interface {
	ObserveToolDuration(tool string, d time.Duration)
	IncToolResult(tool string, result ResultLabel)
	ObserveReruns(n int)
	IncRerunLimitReached()
	IncIssue(code string)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome string) // outcome: success|warning|error|failed
	SetDocuments(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveToolDuration(string, time.Duration) {}
func (NoopRecorder) IncToolResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveReruns(int)                         {}
func (NoopRecorder) IncRerunLimitReached()                     {}
func (NoopRecorder) IncIssue(string)                           {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)        {}
func (NoopRecorder) IncBuildOutcome(string)                    {}
func (NoopRecorder) SetDocuments(int)                          {}
