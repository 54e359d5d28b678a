/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-crptclient/log"
	"github.com/acronis/go-crptclient/log/logtest"
)

type roundTripperFunc func(r *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func newHeadersCapturingServer(t *testing.T) (*httptest.Server, *http.Header) {
	t.Helper()
	var gotHeaders http.Header
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		rw.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)
	return server, &gotHeaders
}

func doGet(t *testing.T, client *http.Client, req *http.Request) *http.Response {
	t.Helper()
	resp, err := client.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp
}

func TestUserAgentRoundTripper(t *testing.T) {
	server, gotHeaders := newHeadersCapturingServer(t)
	client := &http.Client{Transport: NewUserAgentRoundTripper(http.DefaultTransport, "crpt-client/1.0")}

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	doGet(t, client, req)
	require.Equal(t, "crpt-client/1.0", gotHeaders.Get("User-Agent"))

	req, err = http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "demo")
	doGet(t, client, req)
	require.Equal(t, "demo crpt-client/1.0", gotHeaders.Get("User-Agent"))
}

func TestAuthBearerRoundTripper(t *testing.T) {
	server, gotHeaders := newHeadersCapturingServer(t)

	t.Run("token is set", func(t *testing.T) {
		client := &http.Client{Transport: NewAuthBearerRoundTripper(http.DefaultTransport, StaticTokenProvider("secret"))}
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		doGet(t, client, req)
		require.Equal(t, "Bearer secret", gotHeaders.Get("Authorization"))
	})

	t.Run("existing authorization is kept", func(t *testing.T) {
		client := &http.Client{Transport: NewAuthBearerRoundTripper(http.DefaultTransport, StaticTokenProvider("secret"))}
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Basic abc")
		doGet(t, client, req)
		require.Equal(t, "Basic abc", gotHeaders.Get("Authorization"))
	})

	t.Run("empty token", func(t *testing.T) {
		client := &http.Client{Transport: NewAuthBearerRoundTripper(http.DefaultTransport, StaticTokenProvider(""))}
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		doGet(t, client, req)
		require.Empty(t, gotHeaders.Get("Authorization"))
	})

	t.Run("token provider error", func(t *testing.T) {
		providerErr := errors.New("token expired")
		client := &http.Client{Transport: NewAuthBearerRoundTripper(http.DefaultTransport, tokenProviderFunc(
			func(ctx context.Context) (string, error) { return "", providerErr }))}
		req, err := http.NewRequest(http.MethodGet, server.URL, nil)
		require.NoError(t, err)
		_, err = client.Do(req) //nolint:bodyclose // error is expected
		var authErr *AuthBearerRoundTripperError
		require.ErrorAs(t, err, &authErr)
		require.ErrorIs(t, err, providerErr)
	})
}

type tokenProviderFunc func(ctx context.Context) (string, error)

func (f tokenProviderFunc) GetToken(ctx context.Context) (string, error) { return f(ctx) }

func TestRequestIDRoundTripper(t *testing.T) {
	server, gotHeaders := newHeadersCapturingServer(t)
	client := &http.Client{Transport: NewRequestIDRoundTripper(http.DefaultTransport)}

	req, err := http.NewRequestWithContext(NewContextWithRequestID(context.Background(), "item-1"), http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	doGet(t, client, req)
	require.Equal(t, "item-1", gotHeaders.Get(HeaderRequestID))

	req, err = http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	doGet(t, client, req)
	require.Empty(t, gotHeaders.Get(HeaderRequestID))
}

type recordedObservation struct {
	requestType, method, status string
}

type metricsCollectorMock struct {
	observations []recordedObservation
}

func (m *metricsCollectorMock) ObserveRequest(requestType, method, status string, _ time.Duration) {
	m.observations = append(m.observations, recordedObservation{requestType, method, status})
}

func TestMetricsRoundTripper(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusTeapot)
	}))
	defer server.Close()
	collector := &metricsCollectorMock{}
	client := &http.Client{Transport: NewMetricsRoundTripper(http.DefaultTransport, collector)}

	req, err := http.NewRequestWithContext(NewContextWithRequestType(context.Background(), "create_document"),
		http.MethodPost, server.URL, nil)
	require.NoError(t, err)
	doGet(t, client, req)

	failingClient := &http.Client{Transport: NewMetricsRoundTripper(roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		return nil, errors.New("connection reset")
	}), collector)}
	req, err = http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)
	_, err = failingClient.Do(req) //nolint:bodyclose // error is expected
	require.Error(t, err)

	require.Equal(t, []recordedObservation{
		{"create_document", http.MethodPost, "418"},
		{DefaultRequestType, http.MethodGet, "0"},
	}, collector.observations)
}

func TestLoggingRoundTripper(t *testing.T) {
	statusCode := http.StatusOK
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(statusCode)
	}))
	defer server.Close()

	tests := []struct {
		name        string
		mode        LoggingMode
		statusCode  int
		wantEntries int
		wantLevel   log.Level
	}{
		{name: "mode all, success", mode: LoggingModeAll, statusCode: http.StatusOK, wantEntries: 1, wantLevel: log.LevelInfo},
		{name: "mode failed, success", mode: LoggingModeFailed, statusCode: http.StatusOK, wantEntries: 0},
		{name: "mode failed, failure", mode: LoggingModeFailed, statusCode: http.StatusBadGateway, wantEntries: 1, wantLevel: log.LevelWarn},
		{name: "mode none, failure", mode: LoggingModeNone, statusCode: http.StatusBadGateway, wantEntries: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			statusCode = tt.statusCode
			logRecorder := logtest.NewRecorder()
			client := &http.Client{Transport: NewLoggingRoundTripper(http.DefaultTransport, logRecorder, LogConfig{Mode: tt.mode})}
			req, err := http.NewRequestWithContext(NewContextWithRequestID(context.Background(), "item-1"),
				http.MethodGet, server.URL, nil)
			require.NoError(t, err)
			doGet(t, client, req)

			entries := logRecorder.Entries()
			require.Len(t, entries, tt.wantEntries)
			if tt.wantEntries == 0 {
				return
			}
			require.Equal(t, tt.wantLevel, entries[0].Level)
			requestID, found := entries[0].StringField("request_id")
			require.True(t, found)
			require.Equal(t, "item-1", requestID)
			status, found := entries[0].IntField("status")
			require.True(t, found)
			require.EqualValues(t, tt.statusCode, status)
		})
	}
}
