/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"encoding/json"
	"net/http"

	"github.com/acronis/go-crptclient/log"
)

// ContentTypeAppJSON is the Content-Type of JSON responses.
const ContentTypeAppJSON = "application/json"

// RespondJSON sends a response with the given status code and JSON-encoded body.
func RespondJSON(rw http.ResponseWriter, status int, data interface{}, logger log.FieldLogger) {
	rw.Header().Set("Content-Type", ContentTypeAppJSON)
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(data); err != nil && logger != nil {
		logger.Error("error while writing response body", log.Error(err))
	}
}
