/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package crpt

import (
	"fmt"
	"net/url"
)

// ClientError is returned by Client when a request cannot be done or the response status is not 2xx.
type ClientError struct {
	Message    string
	Method     string
	URL        *url.URL
	StatusCode int
	Body       []byte
	Err        error
}

func (e *ClientError) wrap(message string, err error) *ClientError {
	e.Message = message
	e.Err = err
	return e
}

// Error implements error interface.
func (e *ClientError) Error() string {
	str := fmt.Sprintf("method: [%s] url: [%s] status: [%d] message: %s", e.Method, e.URL, e.StatusCode, e.Message)
	if e.Err != nil {
		str += fmt.Sprintf(" error: %s", e.Err.Error())
	}
	return str
}

// Unwrap returns the next error in the error chain.
func (e *ClientError) Unwrap() error {
	return e.Err
}
