package metrics

import "time"

// ResultLabel enumerates stage result categories for counters.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFailed   ResultLabel = "failed"
	ResultCanceled ResultLabel = "canceled"
)

// OutcomeLabel is the final status of a submission attempt.
type OutcomeLabel string

const (
	OutcomeUploaded OutcomeLabel = "uploaded"
	OutcomeRejected OutcomeLabel = "rejected" // marker or eligibility problem, nothing was sent
	OutcomeFailed   OutcomeLabel = "failed"
	OutcomeCanceled OutcomeLabel = "canceled"
)

// Recorder defines observability hooks for submission and clone metrics.
// Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	IncSubmissionOutcome(outcome OutcomeLabel)
	ObserveSubmissionDuration(d time.Duration)
	ObserveArchiveBytes(n int64)
	ObserveCloneDuration(repo string, d time.Duration, success bool)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration)       {}
func (NoopRecorder) IncStageResult(string, ResultLabel)               {}
func (NoopRecorder) IncSubmissionOutcome(OutcomeLabel)                {}
func (NoopRecorder) ObserveSubmissionDuration(time.Duration)          {}
func (NoopRecorder) ObserveArchiveBytes(int64)                        {}
func (NoopRecorder) ObserveCloneDuration(string, time.Duration, bool) {}
