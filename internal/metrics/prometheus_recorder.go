package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "sitesmith"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	composeDuration *prom.HistogramVec
	buildDuration   prom.Histogram
	buildOutcome    *prom.CounterVec
	updateDuration  *prom.HistogramVec
	recomposed      *prom.CounterVec
	outputs         *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.composeDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "compose_duration_seconds",
			Help:      "Duration of single template compositions",
			Buckets:   prom.DefBuckets,
		}, []string{"kind", "result"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total full build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "build_outcomes_total",
			Help:      "Full build outcomes by final status",
		}, []string{"outcome"})
		pr.updateDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Duration of incremental updates by change kind",
			Buckets:   prom.DefBuckets,
		}, []string{"change"})
		pr.recomposed = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "recomposed_templates_total",
			Help:      "Templates recomposed by incremental updates, by change kind",
		}, []string{"change"})
		pr.outputs = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "outputs_total",
			Help:      "Output files by write result",
		}, []string{"result"})
		reg.MustRegister(pr.composeDuration, pr.buildDuration, pr.buildOutcome, pr.updateDuration, pr.recomposed, pr.outputs)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveCompose(kind string, d time.Duration, success bool) {
	if p == nil || p.composeDuration == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.composeDuration.WithLabelValues(kind, res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) ObserveUpdate(change string, d time.Duration) {
	if p == nil || p.updateDuration == nil {
		return
	}
	p.updateDuration.WithLabelValues(change).Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddRecomposed(change string, n int) {
	if p == nil || p.recomposed == nil {
		return
	}
	p.recomposed.WithLabelValues(change).Add(float64(n))
}

func (p *PrometheusRecorder) IncOutput(result OutputLabel) {
	if p == nil || p.outputs == nil {
		return
	}
	p.outputs.WithLabelValues(string(result)).Inc()
}
