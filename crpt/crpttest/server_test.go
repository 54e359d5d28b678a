/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package crpttest

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestServer(t *testing.T) {
	stub := NewServer("secret")

	doRequest := func(auth, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, CreateDocumentPath, bytes.NewBufferString(body))
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		resp := httptest.NewRecorder()
		stub.ServeHTTP(resp, req)
		return resp
	}

	require.Equal(t, http.StatusUnauthorized, doRequest("", "{}").Code)
	require.Equal(t, http.StatusBadRequest, doRequest("Bearer secret", "{").Code)

	stub.FailNext(1)
	require.Equal(t, http.StatusServiceUnavailable, doRequest("Bearer secret", "{}").Code)

	resp := doRequest("Bearer secret", `{"doc_id":"1"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Contains(t, resp.Body.String(), `"value"`)
	require.Len(t, stub.Documents(), 1)
	require.JSONEq(t, `{"doc_id":"1"}`, string(stub.Documents()[0].Body))

	stub.FailNextWithStatus(2, http.StatusTooManyRequests)
	require.Equal(t, http.StatusTooManyRequests, doRequest("Bearer secret", "{}").Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest("Bearer secret", "{}").Code)
	require.Equal(t, http.StatusOK, doRequest("Bearer secret", "{}").Code)
	require.Len(t, stub.Hits(), 5)

	resp = httptest.NewRecorder()
	stub.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, CreateDocumentPath, nil))
	require.Equal(t, http.StatusMethodNotAllowed, resp.Code)
}
