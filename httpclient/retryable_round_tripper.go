/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/acronis/go-crptclient/log"
	"github.com/acronis/go-crptclient/retry"
)

// RetryAttemptNumberHeader is an HTTP header name that will contain the serial number of the retry attempt.
const RetryAttemptNumberHeader = "X-Retry-Attempt"

var errRetryNeeded = errors.New("retry needed")

// CheckRetryFunc is called right after every attempt and determines if the next retry attempt is needed.
type CheckRetryFunc func(ctx context.Context, resp *http.Response, roundTripErr error) (bool, error)

// RetryableRoundTripper wraps an object that implements http.RoundTripper interface
// and provides a retrying mechanism for HTTP requests.
type RetryableRoundTripper struct {
	Delegate http.RoundTripper
	Logger   log.FieldLogger

	// CheckRetry is DefaultCheckRetry if not specified.
	CheckRetry CheckRetryFunc

	// BackoffPolicy computes the wait time before the next attempt and limits the number of attempts.
	BackoffPolicy retry.Policy

	// IgnoreRetryAfter disables using the Retry-After header of the response as the wait time.
	IgnoreRetryAfter bool
}

// RetryableRoundTripperOpts represents an options for RetryableRoundTripper.
type RetryableRoundTripperOpts struct {
	Logger           log.FieldLogger
	CheckRetry       CheckRetryFunc
	IgnoreRetryAfter bool
}

// NewRetryableRoundTripper returns a new instance of RetryableRoundTripper.
func NewRetryableRoundTripper(delegate http.RoundTripper, policy retry.Policy) *RetryableRoundTripper {
	return NewRetryableRoundTripperWithOpts(delegate, policy, RetryableRoundTripperOpts{})
}

// NewRetryableRoundTripperWithOpts returns a new instance of RetryableRoundTripper with specified options.
func NewRetryableRoundTripperWithOpts(
	delegate http.RoundTripper, policy retry.Policy, opts RetryableRoundTripperOpts,
) *RetryableRoundTripper {
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.CheckRetry == nil {
		opts.CheckRetry = DefaultCheckRetry
	}
	return &RetryableRoundTripper{
		Delegate:         delegate,
		Logger:           opts.Logger,
		CheckRetry:       opts.CheckRetry,
		BackoffPolicy:    policy,
		IgnoreRetryAfter: opts.IgnoreRetryAfter,
	}
}

// RoundTrip performs request with retry logic.
func (rt *RetryableRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	rewindReqBody, err := makeRequestBodyRewindable(req)
	if err != nil {
		return nil, &RetryableRoundTripperError{Inner: err}
	}

	bf := &retryAfterBackOff{BackOff: rt.BackoffPolicy.NewBackOff()}
	policy := retry.PolicyFunc(func() backoff.BackOff { return bf })
	ctx := req.Context()

	var resp *http.Response
	var roundTripErr error
	attempt := 0
	doAttempt := func(context.Context) error {
		attemptReq := req
		if attempt > 0 {
			if rewindErr := rewindReqBody(req); rewindErr != nil {
				rt.Logger.Error(fmt.Sprintf(
					"failed to rewind request body between retry attempts, %d request(s) done", attempt),
					log.Error(rewindErr))
				return nil
			}
			if resp != nil {
				drainResponseBody(resp, rt.Logger)
			}
			attemptReq = req.Clone(ctx) // Per RoundTripper contract.
			attemptReq.Header.Set(RetryAttemptNumberHeader, strconv.Itoa(attempt))
		}
		attempt++

		resp, roundTripErr = rt.Delegate.RoundTrip(attemptReq)

		needRetry, checkErr := rt.CheckRetry(ctx, resp, roundTripErr)
		if checkErr != nil {
			rt.Logger.Error(fmt.Sprintf("failed to check if retry is needed, %d request(s) done", attempt),
				log.Error(checkErr))
			return nil
		}
		if !needRetry {
			return nil
		}
		if !rt.IgnoreRetryAfter && resp != nil {
			bf.retryAfter, bf.hasRetryAfter = parseRetryAfterFromResponse(resp)
		}
		return errRetryNeeded
	}
	notify := func(_ error, wait time.Duration) {
		rt.Logger.Warn(fmt.Sprintf("request %s %s will be retried", req.Method, req.URL.String()),
			log.Int("attempt", attempt), log.Duration("wait", wait))
	}

	isRetryable := func(err error) bool { return errors.Is(err, errRetryNeeded) }
	if err = retry.DoWithRetry(ctx, policy, isRetryable, notify, doAttempt); err != nil {
		if errors.Is(err, errRetryNeeded) {
			rt.Logger.Warn(fmt.Sprintf("max retry attempts exceeded, %d request(s) done", attempt))
		} else if ctx.Err() != nil {
			rt.Logger.Warn(fmt.Sprintf("context canceled (%v) while waiting for the next retry attempt, %d request(s) done",
				ctx.Err(), attempt))
		}
	}
	return resp, roundTripErr
}

// retryAfterBackOff prefers the delay from the last Retry-After header.
// The wrapped BackOff is still consulted on every call so its attempt limit applies.
type retryAfterBackOff struct {
	backoff.BackOff
	retryAfter    time.Duration
	hasRetryAfter bool
}

func (b *retryAfterBackOff) NextBackOff() time.Duration {
	next := b.BackOff.NextBackOff()
	if next == backoff.Stop || !b.hasRetryAfter {
		return next
	}
	b.hasRetryAfter = false
	return b.retryAfter
}

// RetryableRoundTripperError is returned in RoundTrip method of RetryableRoundTripper
// when the original request cannot be potentially retried.
type RetryableRoundTripperError struct {
	Inner error
}

func (e *RetryableRoundTripperError) Error() string {
	return fmt.Sprintf("retryable round trip: %s", e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *RetryableRoundTripperError) Unwrap() error {
	return e.Inner
}

// DefaultCheckRetry retries temporary transport errors, 429 and 5xx responses.
func DefaultCheckRetry(ctx context.Context, resp *http.Response, roundTripErr error) (needRetry bool, err error) {
	if ctx.Err() != nil {
		return false, nil
	}
	if roundTripErr != nil {
		return CheckErrorIsTemporary(roundTripErr), nil
	}
	if resp == nil {
		return false, fmt.Errorf("both response and round trip error are nil")
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError, nil
}

// CheckErrorIsTemporary checks either error is temporary or not.
func CheckErrorIsTemporary(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var terr interface{ Temporary() bool }
	return errors.As(err, &terr) && terr.Temporary()
}

// makeRequestBodyRewindable returns a function that resets the request body before a retry attempt.
// http.Request.GetBody is used when available, otherwise the body is buffered in memory.
func makeRequestBodyRewindable(req *http.Request) (func(*http.Request) error, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return func(*http.Request) error { return nil }, nil
	}
	if req.GetBody != nil {
		return func(r *http.Request) error {
			newBody, err := r.GetBody()
			if err != nil {
				return fmt.Errorf("get body for retry: %w", err)
			}
			r.Body = newBody
			return nil
		}, nil
	}
	bufferedReqBody, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read all request body before doing first request: %w", err)
	}
	req.Body = io.NopCloser(bytes.NewReader(bufferedReqBody))
	return func(r *http.Request) error {
		r.Body = io.NopCloser(bytes.NewReader(bufferedReqBody))
		return nil
	}, nil
}

func drainResponseBody(resp *http.Response, logger log.FieldLogger) {
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			logger.Error("failed to close previous response body between retry attempts", log.Error(closeErr))
		}
	}()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		logger.Error("failed to discard previous response body between retry attempts", log.Error(err))
	}
}

func parseRetryAfterFromResponse(resp *http.Response) (retryAfter time.Duration, ok bool) {
	retryAfterVal := resp.Header.Get("Retry-After")
	if retryAfterVal == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(retryAfterVal); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	parsedTime, err := http.ParseTime(retryAfterVal)
	if err != nil {
		return 0, false
	}
	return time.Until(parsedTime), true
}
