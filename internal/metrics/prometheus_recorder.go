package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	pipelineDuration *prom.HistogramVec
	pipelineResults  *prom.CounterVec
	files            *prom.CounterVec
	reloads          *prom.CounterVec
	reloadClients    prom.Gauge
}

// NewPrometheusRecorder constructs and registers the assetpipe metrics on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		pipelineDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "assetpipe",
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of pipeline runs",
			Buckets:   prom.DefBuckets,
		}, []string{"pipeline"}),
		pipelineResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "assetpipe",
			Name:      "pipeline_results_total",
			Help:      "Pipeline run counts by outcome",
		}, []string{"pipeline", "result"}),
		files: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "assetpipe",
			Name:      "pipeline_files_total",
			Help:      "Files handled by pipelines, by disposition",
		}, []string{"pipeline", "disposition"}),
		reloads: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "assetpipe",
			Name:      "livereload_broadcasts_total",
			Help:      "Live-reload broadcasts by kind",
		}, []string{"kind"}),
		reloadClients: prom.NewGauge(prom.GaugeOpts{
			Namespace: "assetpipe",
			Name:      "livereload_clients",
			Help:      "Connected live-reload clients",
		}),
	}
	reg.MustRegister(pr.pipelineDuration, pr.pipelineResults, pr.files, pr.reloads, pr.reloadClients)
	return pr
}

func (p *PrometheusRecorder) ObservePipelineDuration(pipeline string, d time.Duration) {
	if p == nil {
		return
	}
	p.pipelineDuration.WithLabelValues(pipeline).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPipelineResult(pipeline string, result ResultLabel) {
	if p == nil {
		return
	}
	p.pipelineResults.WithLabelValues(pipeline, string(result)).Inc()
}

func (p *PrometheusRecorder) AddFiles(pipeline string, written, skipped int) {
	if p == nil {
		return
	}
	p.files.WithLabelValues(pipeline, "written").Add(float64(written))
	p.files.WithLabelValues(pipeline, "skipped").Add(float64(skipped))
}

func (p *PrometheusRecorder) IncReloadBroadcast(kind string) {
	if p == nil {
		return
	}
	p.reloads.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) SetReloadClients(n int) {
	if p == nil {
		return
	}
	p.reloadClients.Set(float64(n))
}
