package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// Data fetch metrics
	fetchRequestsTotal   *prometheus.CounterVec
	fetchRequestDuration *prometheus.HistogramVec
	fetchesInFlight      prometheus.Gauge

	// Engine metrics
	backtestsTotal       *prometheus.CounterVec
	backtestDuration     prometheus.Histogram
	tradesRecorded       prometheus.Counter
	optimizationsTotal   *prometheus.CounterVec
	optimizationDuration prometheus.Histogram
	gridEvaluations      *prometheus.CounterVec
	seriesBars           prometheus.Gauge
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		fetchRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "smacross_fetch_requests_total",
				Help: "Total number of market data HTTP requests",
			},
			[]string{"host", "status"},
		),

		fetchRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "smacross_fetch_request_duration_seconds",
				Help:    "Market data request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"host"},
		),

		fetchesInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "smacross_fetch_requests_in_flight",
				Help: "Number of market data requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.fetchRequestsTotal)
	reg.MustRegister(r.fetchRequestDuration)
	reg.MustRegister(r.fetchesInFlight)

	r.backtestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smacross_backtests_total",
			Help: "Total number of backtests",
		},
		[]string{"status"},
	)
	r.backtestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "smacross_backtest_duration_seconds",
			Help:    "Backtest pipeline duration in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)
	r.tradesRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "smacross_trades_recorded_total",
			Help: "Total number of completed trades in ledgers",
		},
	)
	r.optimizationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smacross_optimizations_total",
			Help: "Total number of window optimizations",
		},
		[]string{"status"},
	)
	r.optimizationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "smacross_optimization_duration_seconds",
			Help:    "Window optimization duration in seconds",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120},
		},
	)
	r.gridEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "smacross_grid_evaluations_total",
			Help: "Total number of grid points evaluated by the optimizer",
		},
		[]string{"outcome"},
	)
	r.seriesBars = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "smacross_series_bars",
			Help: "Number of bars in the last evaluated price series",
		},
	)

	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.tradesRecorded)
	reg.MustRegister(r.optimizationsTotal)
	reg.MustRegister(r.optimizationDuration)
	reg.MustRegister(r.gridEvaluations)
	reg.MustRegister(r.seriesBars)

	return r
}

// RecordFetch records metrics for a market data request.
func (r *Registry) RecordFetch(host string, status int, duration float64) {
	statusStr := statusToString(status)
	r.fetchRequestsTotal.WithLabelValues(host, statusStr).Inc()
	r.fetchRequestDuration.WithLabelValues(host).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.fetchesInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.fetchesInFlight.Dec()
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(status string, duration float64, bars, trades int) {
	r.backtestsTotal.WithLabelValues(status).Inc()
	r.backtestDuration.Observe(duration)
	r.seriesBars.Set(float64(bars))
	r.tradesRecorded.Add(float64(trades))
}

// RecordOptimization records an optimizer run.
func (r *Registry) RecordOptimization(status string, duration float64) {
	r.optimizationsTotal.WithLabelValues(status).Inc()
	r.optimizationDuration.Observe(duration)
}

// RecordGridPoint counts one optimizer evaluation.
func (r *Registry) RecordGridPoint(scored bool) {
	outcome := "scored"
	if !scored {
		outcome = "skipped"
	}
	r.gridEvaluations.WithLabelValues(outcome).Inc()
}

// WriteTextfile dumps the current metrics in the text exposition format, for
// node_exporter's textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Registry)
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status > 0:
		return "1xx"
	default:
		return "error"
	}
}
