package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "tcide"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	stageDuration      *prom.HistogramVec
	stageResults       *prom.CounterVec
	submissionOutcome  *prom.CounterVec
	submissionDuration prom.Histogram
	archiveBytes       prom.Histogram
	cloneDuration      *prom.HistogramVec
}

// NewPrometheusRecorder constructs the metrics and registers them on reg
// (a fresh registry when nil).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		stageDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual submission stages",
			Buckets:   prom.DefBuckets,
		}, []string{"stage"}),
		stageResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "stage_results_total",
			Help:      "Submission stage result counts by outcome",
		}, []string{"stage", "result"}),
		submissionOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "submission_outcomes_total",
			Help:      "Submission attempts by final status",
		}, []string{"outcome"}),
		submissionDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "submission_duration_seconds",
			Help:      "Total duration of a submission attempt",
			Buckets:   prom.DefBuckets,
		}),
		archiveBytes: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "archive_bytes",
			Help:      "Size of submitted archives",
			Buckets:   prom.ExponentialBuckets(1024, 4, 10),
		}),
		cloneDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "starter_pack_clone_duration_seconds",
			Help:      "Duration of starter pack clones",
			Buckets:   prom.DefBuckets,
		}, []string{"repo", "result"}),
	}
	reg.MustRegister(pr.stageDuration, pr.stageResults, pr.submissionOutcome,
		pr.submissionDuration, pr.archiveBytes, pr.cloneDuration)
	return pr
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p == nil {
		return
	}
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p == nil {
		return
	}
	p.stageResults.WithLabelValues(stage, string(result)).Inc()
}

func (p *PrometheusRecorder) IncSubmissionOutcome(outcome OutcomeLabel) {
	if p == nil {
		return
	}
	p.submissionOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveSubmissionDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.submissionDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveArchiveBytes(n int64) {
	if p == nil {
		return
	}
	p.archiveBytes.Observe(float64(n))
}

func (p *PrometheusRecorder) ObserveCloneDuration(repo string, d time.Duration, success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.cloneDuration.WithLabelValues(repo, res).Observe(d.Seconds())
}
