/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package crpt

import (
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/acronis/go-crptclient/dispatch"
	"github.com/acronis/go-crptclient/httpclient"
	"github.com/acronis/go-crptclient/log"
	"github.com/acronis/go-crptclient/retry"
)

// RetryAttempt is the payload of a document that is submitted again after a failed attempt.
// Every attempt goes through the dispatcher, so it consumes a slot of the window like the first one.
type RetryAttempt struct {
	DocumentProvider

	// Attempt is the number of the retry, starting from 1.
	Attempt int

	// FirstItemID is the ID of the item of the first attempt.
	FirstItemID string

	backOff backoff.BackOff
}

// IsRetryableError reports whether a failed document creation may succeed if sent again:
// 429 and 5xx responses and temporary transport errors.
func IsRetryableError(err error) bool {
	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		return false
	}
	if clientErr.StatusCode != 0 {
		return clientErr.StatusCode == http.StatusTooManyRequests || clientErr.StatusCode >= http.StatusInternalServerError
	}
	return clientErr.Err != nil && httpclient.CheckErrorIsTemporary(clientErr.Err)
}

// resubmitter schedules retries of failed documents through the dispatcher.
type resubmitter struct {
	policy    retry.Policy
	submit    func(payload interface{}) (dispatch.Item, error)
	logger    log.FieldLogger
	afterFunc func(d time.Duration, f func())
}

// newResubmitter returns nil if retries are disabled.
func newResubmitter(cfg httpclient.RetriesConfig, logger log.FieldLogger) *resubmitter {
	// Zero MaxAttempts means unlimited retries for the transport, but documents are not retried forever.
	if !cfg.Enabled || cfg.MaxAttempts <= 0 {
		return nil
	}
	return &resubmitter{
		policy: cfg.Policy(),
		logger: logger,
		afterFunc: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// handleResult submits the document again if the attempt failed with a retryable error
// and the retry policy allows one more attempt.
func (r *resubmitter) handleResult(res dispatch.Result) {
	if res.Err == nil || !IsRetryableError(res.Err) {
		return
	}
	provider, ok := res.Item.Payload.(DocumentProvider)
	if !ok {
		return
	}

	next := RetryAttempt{DocumentProvider: provider, Attempt: 1, FirstItemID: res.Item.ID}
	if prev, isRetry := provider.(RetryAttempt); isRetry {
		next = RetryAttempt{
			DocumentProvider: prev.DocumentProvider,
			Attempt:          prev.Attempt + 1,
			FirstItemID:      prev.FirstItemID,
			backOff:          prev.backOff,
		}
	}
	if next.backOff == nil {
		next.backOff = r.policy.NewBackOff()
	}

	logger := r.logger.With(log.String("item_id", res.Item.ID), log.String("first_item_id", next.FirstItemID))
	delay := next.backOff.NextBackOff()
	if delay == backoff.Stop {
		logger.Warn("document creation failed, no retry attempts left", log.Int("attempts", next.Attempt))
		return
	}
	r.afterFunc(delay, func() {
		item, err := r.submit(next)
		if err != nil {
			logger.Warn("document retry is not submitted", log.Error(err))
			return
		}
		logger.Info("document retry is submitted",
			log.String("retry_item_id", item.ID), log.Int("attempt", next.Attempt), log.Duration("delay", delay))
	})
}
