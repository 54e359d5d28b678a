/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package crpt

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-crptclient/config"
	"github.com/acronis/go-crptclient/crpt/crpttest"
	"github.com/acronis/go-crptclient/httpclient"
)

func newTestConfig(baseURL string) *Config {
	cfg := NewDefaultConfig()
	cfg.BaseURL = baseURL
	cfg.Token = "secret"
	cfg.HTTP.Retries.InitialInterval = config.TimeDuration(time.Millisecond)
	return cfg
}

func TestClient_CreateDocument(t *testing.T) {
	stub := crpttest.NewServer("secret")
	server := httptest.NewServer(stub)
	defer server.Close()

	t.Run("ok", func(t *testing.T) {
		client, err := NewClient(newTestConfig(server.URL), ClientOpts{})
		require.NoError(t, err)

		ctx := httpclient.NewContextWithRequestID(context.Background(), "item-1")
		resp, err := client.CreateDocument(ctx, ExampleDocument())
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Contains(t, string(resp.Body), `"value"`)

		docs := stub.Documents()
		require.Len(t, docs, 1)
		require.Equal(t, "item-1", docs[0].RequestID)
		require.Contains(t, docs[0].UserAgent, DefaultUserAgent)
		require.Contains(t, string(docs[0].Body), DocTypeIntroduceGoods)
	})

	t.Run("one call is one request", func(t *testing.T) {
		client, err := NewClient(newTestConfig(server.URL), ClientOpts{})
		require.NoError(t, err)
		stub.FailNextWithStatus(1, http.StatusTooManyRequests)
		hitsBefore := len(stub.Hits())

		_, err = client.CreateDocument(context.Background(), DocumentJSON(`{"doc_id":"x"}`))
		var clientErr *ClientError
		require.ErrorAs(t, err, &clientErr)
		require.Equal(t, http.StatusTooManyRequests, clientErr.StatusCode)
		require.True(t, IsRetryableError(err))
		require.Len(t, stub.Hits(), hitsBefore+1)
	})

	t.Run("unauthorized", func(t *testing.T) {
		cfg := newTestConfig(server.URL)
		cfg.Token = "wrong"
		client, err := NewClient(cfg, ClientOpts{})
		require.NoError(t, err)

		_, err = client.CreateDocument(context.Background(), ExampleDocument())
		var clientErr *ClientError
		require.ErrorAs(t, err, &clientErr)
		require.Equal(t, http.StatusUnauthorized, clientErr.StatusCode)
		require.Equal(t, http.MethodPost, clientErr.Method)
		require.Equal(t, server.URL+CreateDocumentPath, clientErr.URL.String())
	})

	t.Run("invalid document", func(t *testing.T) {
		client, err := NewClient(newTestConfig(server.URL), ClientOpts{})
		require.NoError(t, err)
		doc := ExampleDocument()
		doc.DocType = ""

		_, err = client.CreateDocument(context.Background(), doc)
		var clientErr *ClientError
		require.ErrorAs(t, err, &clientErr)
		require.Equal(t, "providing document", clientErr.Message)
		require.Zero(t, clientErr.StatusCode)
	})

	t.Run("transport error", func(t *testing.T) {
		transportErr := errors.New("no route to host")
		cfg := newTestConfig(server.URL)
		cfg.HTTP.Retries.Enabled = false
		client, err := NewClient(cfg, ClientOpts{Transport: roundTripperFunc(func(r *http.Request) (*http.Response, error) {
			return nil, transportErr
		})})
		require.NoError(t, err)

		_, err = client.CreateDocument(context.Background(), ExampleDocument())
		require.ErrorIs(t, err, transportErr)
	})
}

func TestClient_MaxResponseBodySize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		_, _ = rw.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer server.Close()

	cfg := newTestConfig(server.URL)
	cfg.MaxResponseBodySize = 1024
	client, err := NewClient(cfg, ClientOpts{})
	require.NoError(t, err)

	_, err = client.CreateDocument(context.Background(), ExampleDocument())
	var clientErr *ClientError
	require.ErrorAs(t, err, &clientErr)
	require.Equal(t, "reading response body", clientErr.Message)
	require.Contains(t, clientErr.Error(), "response body exceeds 1K")
}

type roundTripperFunc func(r *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }
