package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "texbuilder"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once          sync.Once
	reg           *prom.Registry
	toolDuration  *prom.HistogramVec
	toolResults   *prom.CounterVec
	reruns        prom.Histogram
	rerunLimit    prom.Counter
	issues        *prom.CounterVec
	buildDuration prom.Histogram
	buildOutcome  *prom.CounterVec
	documents     prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{reg: reg}
	pr.once.Do(func() {
		pr.toolDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Duration of external tool invocations",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"tool"})
		pr.toolResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "tool_invocations_total",
			Help:      "External tool invocations by result",
		}, []string{"tool", "result"})
		pr.reruns = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "latex_reruns",
			Help:      "Compiler reruns needed per document until convergence",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 8},
		})
		pr.rerunLimit = prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rerun_limit_reached_total",
			Help:      "Documents that still asked for a rerun when the limit was reached",
		})
		pr.issues = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "issues_total",
			Help:      "Reported build issues by code",
		}, []string{"code"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total build pass duration",
			Buckets:   prom.DefBuckets,
		})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.documents = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "documents",
			Help:      "Main documents processed in the last pass",
		})
		reg.MustRegister(pr.toolDuration, pr.toolResults, pr.reruns, pr.rerunLimit, pr.issues, pr.buildDuration, pr.buildOutcome, pr.documents)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveToolDuration(tool string, d time.Duration) {
	if p == nil || p.toolDuration == nil {
		return
	}
	p.toolDuration.WithLabelValues(tool).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncToolResult(tool string, result ResultLabel) {
	if p == nil || p.toolResults == nil {
		return
	}
	p.toolResults.WithLabelValues(tool, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveReruns(n int) {
	if p == nil || p.reruns == nil {
		return
	}
	p.reruns.Observe(float64(n))
}

func (p *PrometheusRecorder) IncRerunLimitReached() {
	if p == nil || p.rerunLimit == nil {
		return
	}
	p.rerunLimit.Inc()
}

func (p *PrometheusRecorder) IncIssue(code string) {
	if p == nil || p.issues == nil {
		return
	}
	p.issues.WithLabelValues(code).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetDocuments(n int) {
	if p == nil || p.documents == nil {
		return
	}
	p.documents.Set(float64(n))
}

// WriteTextfile writes the registry in text exposition format to path, creating the
// parent directory. The write is atomic.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if p == nil || p.reg == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure metrics dir: %w", err)
	}
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
