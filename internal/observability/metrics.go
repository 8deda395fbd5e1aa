package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tent_hex"

// Metrics holds the Prometheus counters, histograms, and gauges for the
// enrichment pipeline and the lookup API.
type Metrics struct {
	// Pipeline metrics.
	RowsRead        *prometheus.CounterVec   // labels: dataset={detections,<category prefix>}
	RowsDropped     *prometheus.CounterVec   // labels: dataset, reason={missing,out_of_range}
	AxisSwaps       *prometheus.CounterVec   // labels: dataset
	FocusedCells    *prometheus.GaugeVec     // labels: tent_status={0,1}
	CategoryPoints  *prometheus.GaugeVec     // labels: category
	CategoryOutcome *prometheus.CounterVec   // labels: category, outcome={loaded,missing,failed,empty}
	StageDuration   *prometheus.HistogramVec // labels: stage={index,enrich,publish}
	LastRunSuccess  prometheus.Gauge

	// Lookup API metrics.
	TableRows      prometheus.Gauge
	LookupRequests *prometheus.CounterVec // labels: route, outcome={found,not_found,bad_request}
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Rows read from input datasets.",
		}, []string{"dataset"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_dropped_total",
			Help:      "Rows dropped during coordinate normalization by reason.",
		}, []string{"dataset", "reason"}),
		AxisSwaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "axis_swaps_total",
			Help:      "Datasets whose latitude and longitude columns were swapped.",
		}, []string{"dataset"}),
		FocusedCells: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "focused_cells",
			Help:      "Focused cells produced by the last run, by tent status.",
		}, []string{"tent_status"}),
		CategoryPoints: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "category_points",
			Help:      "Valid facility points loaded per category in the last run.",
		}, []string{"category"}),
		CategoryOutcome: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "category_outcomes_total",
			Help:      "Facility category processing outcomes.",
		}, []string{"category", "outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),
		LastRunSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_success",
			Help:      "1 when the last pipeline run completed, 0 when it failed.",
		}),
		TableRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "table_rows",
			Help:      "Rows in the enriched table served by the lookup API.",
		}),
		LookupRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookup_requests_total",
			Help:      "Lookup API requests by route and outcome.",
		}, []string{"route", "outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RowsRead,
		m.RowsDropped,
		m.AxisSwaps,
		m.FocusedCells,
		m.CategoryPoints,
		m.CategoryOutcome,
		m.StageDuration,
		m.LastRunSuccess,
		m.TableRows,
		m.LookupRequests,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	prometheus.NewRegistry().MustRegister(m.collectors()...)
	return m
}

// WriteTextfile dumps g in the node_exporter textfile format, for batch runs
// that exit before they could be scraped. A nil g means the default registry.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return prometheus.WriteToTextfile(path, g)
}
