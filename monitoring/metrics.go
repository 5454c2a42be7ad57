package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/headonpro/viktoria-wertheim-backend-sub022/models"
)

// Metrics collects queue and engine health in Prometheus format. It
// satisfies the queue's observer contract, so it plugs straight into the
// queue constructor.
type Metrics struct {
	registry *prometheus.Registry

	queueDepth  prometheus.Gauge
	inFlight    prometheus.Gauge
	jobsTotal   *prometheus.CounterVec
	calcLatency prometheus.Histogram
	fallbacks   *prometheus.CounterVec
	snapshots   *prometheus.CounterVec
	pruned      prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "standings_queue_depth",
			Help: "Number of pending recalculation jobs.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "standings_jobs_in_flight",
			Help: "Number of recalculation jobs currently processing.",
		}),
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "standings_jobs_total",
			Help: "Recalculation job outcomes by competition and result.",
		}, []string{"competition_id", "result"}),
		calcLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "standings_calculation_seconds",
			Help:    "Recalculation duration distribution.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "standings_calculation_fallbacks_total",
			Help: "Per-field computation fallbacks by competition.",
		}, []string{"competition_id"}),
		snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "standings_snapshots_total",
			Help: "Snapshots created by reason.",
		}, []string{"reason"}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "standings_snapshots_pruned_total",
			Help: "Snapshots removed by retention pruning.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.queueDepth, m.inFlight, m.jobsTotal, m.calcLatency, m.fallbacks, m.snapshots, m.pruned,
	)
	return m
}

// Handler serves the scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) JobEnqueued(job *models.Job, depth int) {
	m.queueDepth.Set(float64(depth))
}

func (m *Metrics) JobStarted(job *models.Job, depth, inFlight int) {
	m.queueDepth.Set(float64(depth))
	// Inc/Dec only: a Set here could race a concurrent Dec from another
	// worker finishing and leave the gauge drifted.
	m.inFlight.Inc()
}

func (m *Metrics) JobSucceeded(job *models.Job, duration time.Duration, entries []*models.TableEntry, warnings int) {
	m.inFlight.Dec()
	m.jobsTotal.WithLabelValues(strconv.Itoa(job.CompetitionID), "succeeded").Inc()
	m.calcLatency.Observe(duration.Seconds())
	if warnings > 0 {
		m.fallbacks.WithLabelValues(strconv.Itoa(job.CompetitionID)).Add(float64(warnings))
	}
}

func (m *Metrics) JobFailed(job *models.Job, duration time.Duration, err error, terminal bool) {
	m.inFlight.Dec()
	m.jobsTotal.WithLabelValues(strconv.Itoa(job.CompetitionID), "failed").Inc()
	m.calcLatency.Observe(duration.Seconds())
}

func (m *Metrics) SnapshotCreated(reason models.SnapshotReason) {
	m.snapshots.WithLabelValues(string(reason)).Inc()
}

func (m *Metrics) SnapshotsPruned(count int) {
	m.pruned.Add(float64(count))
}
