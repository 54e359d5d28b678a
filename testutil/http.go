/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/stretchr/testify/require"
)

const contentTypeAppJSON = "application/json"

// RequireJSONInResponse asserts that the response is JSON and decodes its body into dest.
func RequireJSONInResponse(t require.TestingT, resp *http.Response, wantStatus int, dest interface{}) {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}
	require.Equal(t, wantStatus, resp.StatusCode)
	require.Contains(t, resp.Header.Get("Content-Type"), contentTypeAppJSON)
	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(bodyBytes, dest), "body: %s", bodyBytes)
}
