package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framerot_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "framerot_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	rotationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framerot_rotations_total",
			Help: "Total number of frame rotations computed, by outcome.",
		},
		[]string{"family", "from", "to", "result"},
	)

	rotationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "framerot_rotation_duration_seconds",
			Help:    "Time to resolve and compose a single rotation.",
			Buckets: []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3},
		},
	)

	seriesDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "framerot_series_duration_seconds",
			Help:    "Time to compute a rotation series.",
			Buckets: prometheus.DefBuckets,
		},
	)

	seriesPointsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framerot_series_points_total",
			Help: "Total number of series points computed, by outcome.",
		},
		[]string{"from", "to", "result"},
	)

	eopRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "framerot_eop_records",
			Help: "Number of records in the loaded EOP table.",
		},
		[]string{"model"},
	)

	eopLastMJD = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "framerot_eop_last_mjd",
			Help: "Last MJD covered by the loaded EOP table.",
		},
		[]string{"model"},
	)

	eopAgeSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "framerot_eop_age_seconds",
			Help: "Seconds since the EOP table was loaded.",
		},
		[]string{"model"},
	)

	eopReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "framerot_eop_reloads_total",
			Help: "Total number of EOP load attempts, by source and outcome.",
		},
		[]string{"source", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		rotationsTotal,
		rotationDurationSeconds,
		seriesDurationSeconds,
		seriesPointsTotal,
		eopRecords,
		eopLastMJD,
		eopAgeSeconds,
		eopReloadsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRotation counts one rotation. result is "ok" or an error class.
func RecordRotation(family, from, to, result string, d time.Duration) {
	rotationsTotal.WithLabelValues(family, from, to, result).Inc()
	rotationDurationSeconds.Observe(d.Seconds())
}

// RecordSeries records a completed series.
func RecordSeries(from, to string, d time.Duration, ok, failed int) {
	seriesDurationSeconds.Observe(d.Seconds())
	seriesPointsTotal.WithLabelValues(from, to, "ok").Add(float64(ok))
	if failed > 0 {
		seriesPointsTotal.WithLabelValues(from, to, "error").Add(float64(failed))
	}
}

// SetEOPTable publishes the size and coverage of a loaded EOP table.
func SetEOPTable(model string, records int, lastMJD float64) {
	eopRecords.WithLabelValues(model).Set(float64(records))
	eopLastMJD.WithLabelValues(model).Set(lastMJD)
}

// SetEOPAge sets the age of an EOP table in seconds.
func SetEOPAge(model string, seconds float64) {
	eopAgeSeconds.WithLabelValues(model).Set(seconds)
}

// IncEOPReload counts an EOP load attempt from "file", "cache" or "fetch".
func IncEOPReload(source string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	eopReloadsTotal.WithLabelValues(source, result).Inc()
}

// knownRoutes are exact paths that get their own label.
var knownRoutes = map[string]bool{
	"/":                       true,
	"/healthz":                true,
	"/readyz":                 true,
	"/metrics":                true,
	"/api/v1/frames":          true,
	"/api/v1/rotation":        true,
	"/api/v1/rotation/series": true,
	"/api/v1/state":           true,
	"/api/v1/station":         true,
	"/api/v1/eop/metadata":    true,
	"/api/v1/eop/fetch":       true,
}

const planPrefix = "/api/v1/plan/"

// normalizeRoute maps a request path to a bounded label set so that
// arbitrary paths cannot inflate metric cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, planPrefix); ok {
		parts := strings.Split(rest, "/")
		if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			return planPrefix + "{from}/{to}"
		}
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
