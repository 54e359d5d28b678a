/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package httpclient builds *http.Client instances with a chain of round trippers
// for retries, authorization, User-Agent, request IDs, logging and metrics.
package httpclient

import (
	"net/http"
	"time"

	"github.com/acronis/go-crptclient/log"
)

// DefaultRequestType is used in logs and metrics when the request context has no request type.
const DefaultRequestType = "default"

// Opts provides options for NewWithOpts function.
type Opts struct {
	// Delegate is the innermost RoundTripper. A clone of http.DefaultTransport is used if not specified.
	Delegate http.RoundTripper

	Logger           log.FieldLogger
	UserAgent        string
	TokenProvider    TokenProvider
	MetricsCollector MetricsCollector
}

// New creates a new *http.Client configured by cfg.
func New(cfg *Config) *http.Client {
	return NewWithOpts(cfg, Opts{})
}

// NewWithOpts creates a new *http.Client configured by cfg.
// The chain is (outermost first): retries, User-Agent, authorization, request ID, logging, metrics.
// Every retry attempt is therefore logged and measured separately.
func NewWithOpts(cfg *Config, opts Opts) *http.Client {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}

	delegate := opts.Delegate
	if delegate == nil {
		delegate = http.DefaultTransport.(*http.Transport).Clone()
	}
	if opts.MetricsCollector != nil {
		delegate = NewMetricsRoundTripper(delegate, opts.MetricsCollector)
	}
	if cfg.Log.Mode != "" && cfg.Log.Mode != LoggingModeNone {
		delegate = NewLoggingRoundTripper(delegate, logger, cfg.Log)
	}
	delegate = NewRequestIDRoundTripper(delegate)
	if opts.TokenProvider != nil {
		delegate = NewAuthBearerRoundTripper(delegate, opts.TokenProvider)
	}
	if opts.UserAgent != "" {
		delegate = NewUserAgentRoundTripper(delegate, opts.UserAgent)
	}
	if cfg.Retries.Enabled {
		delegate = NewRetryableRoundTripperWithOpts(delegate, cfg.Retries.Policy(), RetryableRoundTripperOpts{
			Logger: logger,
		})
	}
	return &http.Client{Transport: delegate, Timeout: time.Duration(cfg.Timeout)}
}
