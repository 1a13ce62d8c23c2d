package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"post_importer/internal/domain"
)

const namespace = "post_importer"

type Metrics struct {
	importRuns     *prometheus.CounterVec
	importOutcomes *prometheus.CounterVec
	importFetched  prometheus.Counter
	importDuration prometheus.Histogram
	lastSuccess    prometheus.Gauge
	renders        *prometheus.CounterVec
	renderDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		importRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_runs_total",
			Help:      "Import runs by result.",
		}, []string{"result"}),
		importOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_articles_total",
			Help:      "Per-article import outcomes.",
		}, []string{"outcome"}),
		importFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_fetched_articles_total",
			Help:      "Articles read from the feed.",
		}),
		importDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Duration of import runs.",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "import_last_success_timestamp_seconds",
			Help:      "Finish time of the last import that fetched the feed.",
		}),
		renders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_lists_total",
			Help:      "Rendered lists by outcome.",
		}, []string{"outcome"}),
		renderDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Duration of list rendering.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) AfterImport(_ context.Context, report *domain.ImportReport) error {
	m.importDuration.Observe(report.Duration().Seconds())

	if report.Failure() {
		m.importRuns.WithLabelValues("feed_error").Inc()
		return nil
	}

	m.importRuns.WithLabelValues("completed").Inc()
	m.importFetched.Add(float64(report.Fetched))
	for _, o := range report.Outcomes {
		m.importOutcomes.WithLabelValues(string(o.Kind)).Inc()
	}
	m.lastSuccess.Set(float64(report.FinishedAt.Unix()))
	return nil
}

func (m *Metrics) ObserveRender(outcome string, d time.Duration) {
	m.renders.WithLabelValues(outcome).Inc()
	m.renderDuration.Observe(d.Seconds())
}
