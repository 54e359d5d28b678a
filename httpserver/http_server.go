/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package httpserver provides an HTTP server unit with /metrics and /healthz endpoints built on chi.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/atomic"

	"github.com/acronis/go-crptclient/log"
	"github.com/acronis/go-crptclient/service"
)

// Opts represents options for creating HTTPServer.
type Opts struct {
	RouterOpts

	// MetricsNamespace is a namespace of HTTP request metrics.
	// Request metrics are collected only for additional routes.
	MetricsNamespace string
}

// HTTPServer is a wrapper around http.Server that implements service.Unit and service.MetricsRegisterer.
type HTTPServer struct {
	HTTPServer      *http.Server
	HTTPRouter      chi.Router
	Logger          log.FieldLogger
	ShutdownTimeout time.Duration

	requestMetrics *HTTPRequestPrometheusMetrics
	addr           atomic.String
	done           chan struct{}
}

var _ service.Unit = (*HTTPServer)(nil)
var _ service.MetricsRegisterer = (*HTTPServer)(nil)

// New creates a new HTTPServer.
func New(cfg *Config, logger log.FieldLogger, opts Opts) *HTTPServer { //nolint:gocritic // opts are passed once
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	routerOpts := opts.RouterOpts
	if routerOpts.Routes != nil && routerOpts.RequestMetrics == nil {
		routerOpts.RequestMetrics = NewHTTPRequestPrometheusMetrics(opts.MetricsNamespace)
	}
	routerOpts.LogRequests = routerOpts.LogRequests || cfg.LogRequests
	router := NewRouter(logger, routerOpts)

	return &HTTPServer{
		HTTPServer: &http.Server{
			Addr:              cfg.Address,
			Handler:           router,
			WriteTimeout:      time.Duration(cfg.Timeouts.Write),
			ReadTimeout:       time.Duration(cfg.Timeouts.Read),
			ReadHeaderTimeout: time.Duration(cfg.Timeouts.ReadHeader),
			IdleTimeout:       time.Duration(cfg.Timeouts.Idle),
		},
		HTTPRouter:      router,
		Logger:          logger,
		ShutdownTimeout: time.Duration(cfg.Timeouts.Shutdown),
		requestMetrics:  routerOpts.RequestMetrics,
		done:            make(chan struct{}),
	}
}

// Start listens on the configured address and serves requests until Stop is called.
// It is supposed to be called in a separate goroutine. Listening and serving errors are sent to fatalError.
func (s *HTTPServer) Start(fatalError chan<- error) {
	defer close(s.done)

	logger := s.Logger.With(log.String("address", s.HTTPServer.Addr))
	logger.Info("starting HTTP server...")

	listener, err := net.Listen("tcp", s.HTTPServer.Addr)
	if err != nil {
		logger.Error("HTTP server error", log.Error(err))
		fatalError <- err
		return
	}
	s.addr.Store(listener.Addr().String())

	if err = s.HTTPServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server error", log.Error(err))
		fatalError <- err
		return
	}
	logger.Info("HTTP server closed")
}

// Addr returns the address the server listens on (with the actual port) or an empty string if it is not started yet.
func (s *HTTPServer) Addr() string {
	return s.addr.Load()
}

// URL returns the base URL of the started server.
func (s *HTTPServer) URL() string {
	if addr := s.Addr(); addr != "" {
		return "http://" + addr
	}
	return ""
}

// Stop stops HTTP server (gracefully or not) and waits until Start returns.
func (s *HTTPServer) Stop(gracefully bool) error {
	if !gracefully {
		s.Logger.Info("closing HTTP server...")
		if err := s.HTTPServer.Close(); err != nil {
			s.Logger.Error("HTTP server closing error", log.Error(err))
			return err
		}
	} else {
		ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
		defer cancel()
		s.Logger.Info("shutting down HTTP server...", log.Duration("timeout", s.ShutdownTimeout))
		if err := s.HTTPServer.Shutdown(ctx); err != nil {
			s.Logger.Error("HTTP server shutting down error", log.Error(err))
			return err
		}
	}
	if s.Addr() != "" {
		<-s.done
	}
	return nil
}

// MustRegisterMetrics registers metrics in Prometheus client and panics if any error occurs.
func (s *HTTPServer) MustRegisterMetrics() {
	if s.requestMetrics != nil {
		s.requestMetrics.MustRegister()
	}
}

// UnregisterMetrics unregisters metrics in Prometheus client.
func (s *HTTPServer) UnregisterMetrics() {
	if s.requestMetrics != nil {
		s.requestMetrics.Unregister()
	}
}
