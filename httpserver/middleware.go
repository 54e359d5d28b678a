/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/xid"

	"github.com/acronis/go-crptclient/log"
)

// HeaderRequestID is a header that carries the request identifier.
const HeaderRequestID = "X-Request-ID"

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyLogger
)

// GetRequestIDFromContext returns the request ID stored by RequestID middleware.
func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeyRequestID).(string)
	return id
}

// GetLoggerFromContext returns the request-scoped logger stored by Logging middleware.
func GetLoggerFromContext(ctx context.Context) log.FieldLogger {
	logger, _ := ctx.Value(ctxKeyLogger).(log.FieldLogger)
	return logger
}

// RequestID is a middleware that takes the request ID from the X-Request-ID header
// (or generates a new one) and sets it in the response header and in the request context.
func RequestID() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(HeaderRequestID)
			if requestID == "" {
				requestID = xid.New().String()
			}
			rw.Header().Set(HeaderRequestID, requestID)
			next.ServeHTTP(rw, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, requestID)))
		})
	}
}

// Logging is a middleware that puts a request-scoped logger into the context
// and logs every finished request if logRequests is true.
func Logging(logger log.FieldLogger, logRequests bool) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			reqLogger := logger.With(
				log.String("request_id", GetRequestIDFromContext(r.Context())),
				log.String("method", r.Method),
				log.String("uri", r.RequestURI),
			)
			r = r.WithContext(context.WithValue(r.Context(), ctxKeyLogger, reqLogger))
			if !logRequests {
				next.ServeHTTP(rw, r)
				return
			}

			startTime := time.Now()
			wrw := middleware.NewWrapResponseWriter(rw, r.ProtoMajor)
			next.ServeHTTP(wrw, r)
			reqLogger.Info(fmt.Sprintf("response completed in %.3fs", time.Since(startTime).Seconds()),
				log.Int("status", wrw.Status()),
				log.Int("bytes_sent", wrw.BytesWritten()),
				log.DurationIn(time.Since(startTime), time.Millisecond),
			)
		})
	}
}

// Recovery is a middleware that recovers from panics in handlers, logs them and responds with 500.
func Recovery(logger log.FieldLogger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				if p == http.ErrAbortHandler { //nolint:errorlint // panic value is compared as is
					panic(p)
				}
				reqLogger := GetLoggerFromContext(r.Context())
				if reqLogger == nil {
					reqLogger = logger
				}
				const logStackSize = 8192
				stack := make([]byte, logStackSize)
				stack = stack[:runtime.Stack(stack, false)]
				reqLogger.Error(fmt.Sprintf("panic: %+v", p), log.Bytes("stack", stack))
				rw.WriteHeader(http.StatusInternalServerError)
			}()
			next.ServeHTTP(rw, r)
		})
	}
}
