/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acronis/go-crptclient/log"
)

// systemEndpoints are excluded from request metrics.
var systemEndpoints = []string{"/metrics", "/healthz"}

// RouterOpts represents options for creating chi.Router.
type RouterOpts struct {
	// HealthCheck is called on GET /healthz.
	HealthCheck HealthCheck

	// MetricsHandler serves GET /metrics. promhttp.Handler() is used if not specified.
	MetricsHandler http.Handler

	// Routes registers additional routes.
	Routes func(router chi.Router)

	// RequestMetrics, if set, observes durations of requests to Routes.
	RequestMetrics *HTTPRequestPrometheusMetrics

	// LogRequests enables logging of every finished request.
	LogRequests bool
}

// NewRouter creates a new chi.Router with request ID, logging, recovery (and optionally metrics) middlewares,
// /metrics and /healthz endpoints.
func NewRouter(logger log.FieldLogger, opts RouterOpts) chi.Router {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	router := chi.NewRouter()
	router.Use(RequestID(), Logging(logger, opts.LogRequests), Recovery(logger))
	if opts.RequestMetrics != nil {
		router.Use(opts.RequestMetrics.Middleware(systemEndpoints...))
	}

	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	router.Method(http.MethodGet, "/metrics", metricsHandler)
	router.Method(http.MethodGet, "/healthz", NewHealthCheckHandler(opts.HealthCheck, logger))

	if opts.Routes != nil {
		opts.Routes(router)
	}
	return router
}
