/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/acronis/go-crptclient/log"
)

// StatusClientClosedRequest is a special HTTP status code used by Nginx to show that the client
// closed the request before the server could send a response.
const StatusClientClosedRequest = 499

// ComponentHealth is a health-check result of a single component.
type ComponentHealth struct {
	Healthy bool                   `json:"healthy"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthCheckResult maps component names to their health.
type HealthCheckResult = map[string]ComponentHealth

// HealthCheck returns the health of service's components.
type HealthCheck = func(ctx context.Context) (HealthCheckResult, error)

type healthCheckResponseData struct {
	Components HealthCheckResult `json:"components"`
}

// HealthCheckHandler implements http.Handler and does health-check of a service.
// It responds with 503 if any component is unhealthy.
type HealthCheckHandler struct {
	healthCheck HealthCheck
	logger      log.FieldLogger
}

// NewHealthCheckHandler creates a new http.Handler for doing health-check.
func NewHealthCheckHandler(fn HealthCheck, logger log.FieldLogger) *HealthCheckHandler {
	if fn == nil {
		fn = func(ctx context.Context) (HealthCheckResult, error) {
			return HealthCheckResult{}, ctx.Err()
		}
	}
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &HealthCheckHandler{healthCheck: fn, logger: logger}
}

// ServeHTTP serves heath-check HTTP request.
func (h *HealthCheckHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	result, err := h.healthCheck(r.Context())
	if errors.Is(r.Context().Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		rw.WriteHeader(StatusClientClosedRequest)
		return
	}
	if err != nil {
		h.logger.Error("error while checking health", log.Error(err))
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	for _, c := range result {
		if !c.Healthy {
			status = http.StatusServiceUnavailable
			break
		}
	}
	RespondJSON(rw, status, healthCheckResponseData{Components: result}, h.logger)
}
