/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-crptclient/retry"
)

func TestRetryableRoundTripper(t *testing.T) {
	policy := retry.NewConstantBackoffPolicy(time.Millisecond*10, 3)

	newServer := func(t *testing.T, failuresCount int32, failStatus int, headers http.Header) (*httptest.Server, *atomic.Int32, *[]string) {
		t.Helper()
		var calls atomic.Int32
		var bodies []string
		server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			n := calls.Inc()
			body, _ := io.ReadAll(r.Body)
			bodies = append(bodies, string(body))
			if n > 1 {
				require.Equal(t, strconv.Itoa(int(n-1)), r.Header.Get(RetryAttemptNumberHeader))
			}
			if n <= failuresCount {
				for k, v := range headers {
					rw.Header()[k] = v
				}
				rw.WriteHeader(failStatus)
				return
			}
			rw.WriteHeader(http.StatusCreated)
		}))
		t.Cleanup(server.Close)
		return server, &calls, &bodies
	}

	t.Run("retry 5xx until success with body rewinding", func(t *testing.T) {
		server, calls, bodies := newServer(t, 2, http.StatusServiceUnavailable, nil)
		client := &http.Client{Transport: NewRetryableRoundTripper(http.DefaultTransport, policy)}

		resp, err := client.Post(server.URL, "application/json", bytes.NewReader([]byte(`{"doc":1}`)))
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		require.EqualValues(t, 3, calls.Load())
		require.Equal(t, []string{`{"doc":1}`, `{"doc":1}`, `{"doc":1}`}, *bodies)
	})

	t.Run("max attempts exceeded", func(t *testing.T) {
		server, calls, _ := newServer(t, 100, http.StatusTooManyRequests, nil)
		client := &http.Client{Transport: NewRetryableRoundTripper(http.DefaultTransport, policy)}

		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		require.EqualValues(t, 4, calls.Load())
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		server, calls, _ := newServer(t, 100, http.StatusBadRequest, nil)
		client := &http.Client{Transport: NewRetryableRoundTripper(http.DefaultTransport, policy)}

		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		require.EqualValues(t, 1, calls.Load())
	})

	t.Run("retry-after is respected", func(t *testing.T) {
		server, calls, _ := newServer(t, 1, http.StatusServiceUnavailable, http.Header{"Retry-After": []string{"1"}})
		client := &http.Client{Transport: NewRetryableRoundTripper(http.DefaultTransport, policy)}

		start := time.Now()
		resp, err := client.Get(server.URL)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		require.EqualValues(t, 2, calls.Load())
		require.GreaterOrEqual(t, time.Since(start), time.Second)
	})

	t.Run("context canceled while waiting", func(t *testing.T) {
		server, calls, _ := newServer(t, 100, http.StatusServiceUnavailable, nil)
		client := &http.Client{Transport: NewRetryableRoundTripper(http.DefaultTransport,
			retry.NewConstantBackoffPolicy(time.Hour, 3))}
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond*100)
		defer cancel()
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
		require.NoError(t, err)

		resp, err := client.Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		require.EqualValues(t, 1, calls.Load())
	})
}

func TestDefaultCheckRetry(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		status int
		want   bool
	}{
		{http.StatusOK, false},
		{http.StatusBadRequest, false},
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusBadGateway, true},
	} {
		got, err := DefaultCheckRetry(ctx, &http.Response{StatusCode: tc.status}, nil)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "status %d", tc.status)
	}

	got, err := DefaultCheckRetry(ctx, nil, io.ErrUnexpectedEOF)
	require.NoError(t, err)
	require.True(t, got)

	_, err = DefaultCheckRetry(ctx, nil, nil)
	require.Error(t, err)
}
