/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	errTemporary = errors.New("temporary error")
	errPermanent = errors.New("permanent error")
)

func TestDoWithRetry(t *testing.T) {
	isRetryable := func(err error) bool { return errors.Is(err, errTemporary) }

	t.Run("succeeds after retries", func(t *testing.T) {
		calls := 0
		var delays []time.Duration
		err := DoWithRetry(context.Background(), NewConstantBackoffPolicy(time.Millisecond, 5), isRetryable,
			func(err error, d time.Duration) { delays = append(delays, d) },
			func(ctx context.Context) error {
				calls++
				if calls < 3 {
					return errTemporary
				}
				return nil
			})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
		require.Equal(t, []time.Duration{time.Millisecond, time.Millisecond}, delays)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := DoWithRetry(context.Background(), NewExponentialBackoffPolicy(time.Millisecond, 2), isRetryable, nil,
			func(ctx context.Context) error {
				calls++
				return errTemporary
			})
		require.ErrorIs(t, err, errTemporary)
		require.Equal(t, 3, calls)
	})

	t.Run("non-retryable error", func(t *testing.T) {
		calls := 0
		err := DoWithRetry(context.Background(), NewConstantBackoffPolicy(time.Millisecond, 5), isRetryable, nil,
			func(ctx context.Context) error {
				calls++
				return errPermanent
			})
		require.ErrorIs(t, err, errPermanent)
		require.Equal(t, 1, calls)
	})

	t.Run("no retry policy", func(t *testing.T) {
		calls := 0
		err := DoWithRetry(context.Background(), NoRetryPolicy, nil, nil, func(ctx context.Context) error {
			calls++
			return errTemporary
		})
		require.ErrorIs(t, err, errTemporary)
		require.Equal(t, 1, calls)
	})

	t.Run("context is canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := DoWithRetry(ctx, NewConstantBackoffPolicy(10*time.Millisecond, 0), nil, nil, func(ctx context.Context) error {
			calls++
			if calls == 2 {
				cancel()
			}
			return errTemporary
		})
		require.Error(t, err)
		require.Equal(t, 2, calls)
	})
}
