/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultHTTPRequestDurationBuckets is default buckets into which observations of serving HTTP requests are counted.
var DefaultHTTPRequestDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// HTTPRequestPrometheusMetrics collects metrics of served HTTP requests.
type HTTPRequestPrometheusMetrics struct {
	Durations *prometheus.HistogramVec
}

// NewHTTPRequestPrometheusMetrics creates a new instance of HTTPRequestPrometheusMetrics.
func NewHTTPRequestPrometheusMetrics(namespace string) *HTTPRequestPrometheusMetrics {
	return &HTTPRequestPrometheusMetrics{
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "A histogram of the HTTP request durations.",
			Buckets:   DefaultHTTPRequestDurationBuckets,
		}, []string{"method", "route_pattern", "status_code"}),
	}
}

// MustRegister registers metrics in Prometheus client and panics if any error occurs.
func (pm *HTTPRequestPrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.Durations)
}

// Unregister unregisters metrics in Prometheus client.
func (pm *HTTPRequestPrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.Durations)
}

// Middleware returns a middleware that observes durations of HTTP requests.
// Requests to excludedEndpoints are not observed.
func (pm *HTTPRequestPrometheusMetrics) Middleware(excludedEndpoints ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			for _, e := range excludedEndpoints {
				if r.URL.Path == e {
					next.ServeHTTP(rw, r)
					return
				}
			}
			startTime := time.Now()
			wrw := middleware.NewWrapResponseWriter(rw, r.ProtoMajor)
			next.ServeHTTP(wrw, r)
			status := wrw.Status()
			if status == 0 {
				status = http.StatusOK
			}
			pm.Durations.WithLabelValues(r.Method, GetChiRoutePattern(r), strconv.Itoa(status)).
				Observe(time.Since(startTime).Seconds())
		})
	}
}

// GetChiRoutePattern extracts chi route pattern from request.
func GetChiRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	routePath := r.URL.RawPath
	if routePath == "" {
		routePath = r.URL.Path
	}
	tctx := chi.NewRouteContext()
	if !rctx.Routes.Match(tctx, r.Method, routePath) {
		return ""
	}
	return tctx.RoutePattern()
}
