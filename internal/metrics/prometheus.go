package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	buildDuration    *prom.HistogramVec
	buildOutcome     *prom.CounterVec
	articlesRendered *prom.CounterVec
	renderErrors     *prom.CounterVec
	rebuilds         *prom.CounterVec
}

// NewPrometheusRecorder creates the collectors and registers them with reg.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	pr := &PrometheusRecorder{
		buildDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "zendown",
			Name:      "build_duration_seconds",
			Help:      "Duration of a full build of one target",
			Buckets:   prom.DefBuckets,
		}, []string{"target"}),
		buildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "zendown",
			Name:      "build_outcomes_total",
			Help:      "Builds by target and outcome",
		}, []string{"target", "outcome"}),
		articlesRendered: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "zendown",
			Name:      "articles_rendered_total",
			Help:      "Articles rendered by target",
		}, []string{"target"}),
		renderErrors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "zendown",
			Name:      "render_errors_total",
			Help:      "Inline error markers emitted, by kind",
		}, []string{"kind"}),
		rebuilds: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "zendown",
			Name:      "rebuilds_total",
			Help:      "Rebuilds started by the file watcher, by trigger",
		}, []string{"trigger"}),
	}
	reg.MustRegister(pr.buildDuration, pr.buildOutcome, pr.articlesRendered, pr.renderErrors, pr.rebuilds)
	return pr
}

func (p *PrometheusRecorder) ObserveBuildDuration(target string, d time.Duration) {
	p.buildDuration.WithLabelValues(target).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(target, outcome string) {
	p.buildOutcome.WithLabelValues(target, outcome).Inc()
}

func (p *PrometheusRecorder) IncArticlesRendered(target string) {
	p.articlesRendered.WithLabelValues(target).Inc()
}

func (p *PrometheusRecorder) IncRenderError(kind string) {
	p.renderErrors.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncRebuild(trigger string) {
	p.rebuilds.WithLabelValues(trigger).Inc()
}

// HTTPHandler serves the metrics gathered by reg.
func HTTPHandler(reg prom.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
