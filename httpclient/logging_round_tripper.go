/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/acronis/go-crptclient/log"
)

// LoggingMode represents a mode of logging.
type LoggingMode string

// Logging modes.
const (
	LoggingModeNone   LoggingMode = "none"
	LoggingModeAll    LoggingMode = "all"
	LoggingModeFailed LoggingMode = "failed"
)

// LoggingRoundTripper implements http.RoundTripper for logging requests.
type LoggingRoundTripper struct {
	Delegate http.RoundTripper
	Logger   log.FieldLogger
	Mode     LoggingMode

	// SlowRequestThreshold makes successful requests be logged only if they take at least this long.
	SlowRequestThreshold time.Duration
}

// NewLoggingRoundTripper creates an HTTP transport that logs requests.
func NewLoggingRoundTripper(delegate http.RoundTripper, logger log.FieldLogger, cfg LogConfig) *LoggingRoundTripper {
	return &LoggingRoundTripper{
		Delegate:             delegate,
		Logger:               logger,
		Mode:                 cfg.Mode,
		SlowRequestThreshold: time.Duration(cfg.SlowRequestThreshold),
	}
}

// RoundTrip adds logging capabilities to the HTTP transport.
func (rt *LoggingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if rt.Mode == LoggingModeNone || rt.Logger == nil {
		return rt.Delegate.RoundTrip(r)
	}

	start := time.Now()
	resp, err := rt.Delegate.RoundTrip(r)
	elapsed := time.Since(start)

	failed := err != nil || (resp != nil && resp.StatusCode >= http.StatusBadRequest)
	if !failed && (rt.Mode == LoggingModeFailed || elapsed < rt.SlowRequestThreshold) {
		return resp, err
	}

	fields := []log.Field{
		log.String("request_type", requestTypeOrDefault(r)),
		log.String("method", r.Method),
		log.String("url", r.URL.String()),
		log.DurationIn(elapsed, time.Millisecond),
	}
	if requestID := GetRequestIDFromContext(r.Context()); requestID != "" {
		fields = append(fields, log.String("request_id", requestID))
	}
	if err != nil {
		rt.Logger.Error(fmt.Sprintf("client http request %s %s failed", r.Method, r.URL.String()),
			append(fields, log.Error(err))...)
		return resp, err
	}
	fields = append(fields, log.Int("status", resp.StatusCode))
	msg := fmt.Sprintf("client http request %s %s status code %d, time taken %.3f",
		r.Method, r.URL.String(), resp.StatusCode, elapsed.Seconds())
	if failed {
		rt.Logger.Warn(msg, fields...)
	} else {
		rt.Logger.Info(msg, fields...)
	}
	return resp, err
}
