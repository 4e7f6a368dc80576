package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hoppss/path-planner/pkg/planner"
)

// prometheus metrics
type metrics struct {
	PlanQueryCount     *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	durationSummary    prometheus.Summary
	responseStatusCode *prometheus.CounterVec
	totalRequests      *prometheus.CounterVec

	planningCycle    prometheus.Histogram
	verticesExpanded prometheus.Counter
	verticesPruned   prometheus.Counter
	ribbonsRemaining prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		PlanQueryCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pathplanner",
			Name:      "plan_query_count",
			Help:      "The total number of plan queries",
		}, []string{"found"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pathplanner",
			Name:      "request_duration_seconds",
			Help:      "The duration of request",
			Buckets:   []float64{0.05, 0.1, 0.15, 0.2, 0.25, 0.3},
		}, []string{"method", "path"}),
		durationSummary: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace:  "pathplanner",
			Name:       "request_duration_summary_seconds",
			Help:       "The duration of request",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		}),
		responseStatusCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pathplanner",
				Name:      "response_status_code",
				Help:      "The status code of http response",
			}, []string{"status", "method", "path"},
		),
		totalRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pathplanner",
				Name:      "total_requests",
				Help:      "The total number of requests",
			}, []string{"path", "method", "status"},
		),
		planningCycle: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "pathplanner",
			Name:      "planning_cycle_duration_seconds",
			Help:      "Wall time of each planning cycle",
			Buckets:   []float64{0.1, 0.25, 0.5, 0.75, 1, 1.5, 2},
		}),
		verticesExpanded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pathplanner",
			Name:      "vertices_expanded_total",
			Help:      "Vertices expanded by the planner",
		}),
		verticesPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pathplanner",
			Name:      "vertices_pruned_total",
			Help:      "Candidate vertices pruned before insertion",
		}),
		ribbonsRemaining: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pathplanner",
			Name:      "ribbons_remaining",
			Help:      "Uncovered ribbons left",
		}),
	}
	reg.MustRegister(m.PlanQueryCount, m.httpDuration, m.durationSummary,
		m.responseStatusCode, m.totalRequests,
		m.planningCycle, m.verticesExpanded, m.verticesPruned, m.ribbonsRemaining)
	return m
}

// ObservePlanningCycle implements executive.MetricsSink.
func (m *metrics) ObservePlanningCycle(seconds float64, stats planner.Stats) {
	m.planningCycle.Observe(seconds)
	m.verticesExpanded.Add(float64(stats.Expanded))
	m.verticesPruned.Add(float64(stats.Pruned))
}

func (m *metrics) ObserveRibbonsRemaining(count int) {
	m.ribbonsRemaining.Set(float64(count))
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func NewResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{w, http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func PromeHttpMiddleware(m *metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			rw := NewResponseWriter(w)
			timer := prometheus.NewTimer(m.httpDuration.With(prometheus.Labels{"method": r.Method, "path": path}))
			now := time.Now()

			next.ServeHTTP(rw, r)

			statusCode := rw.statusCode

			m.responseStatusCode.With(prometheus.Labels{"status": strconv.Itoa(statusCode), "method": r.Method, "path": path}).Inc()
			m.totalRequests.With(prometheus.Labels{"path": path, "method": r.Method, "status": strconv.Itoa(statusCode)}).Inc()
			timer.ObserveDuration()
			m.durationSummary.Observe(time.Since(now).Seconds())
		})
	}
}
