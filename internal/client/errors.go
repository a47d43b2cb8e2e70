package client

import (
	"errors"
	"fmt"
)

// StatusError reports a non-2xx response from the inference server.
// Body carries the raw response text verbatim.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status code %d", e.Code)
}

// StatusCode returns the HTTP status carried by the error.
func (e *StatusError) StatusCode() int { return e.Code }

// AsStatusError reports whether err (or anything it wraps) is a
// StatusError from the server, as opposed to a transport failure.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	ok := errors.As(err, &se)
	return se, ok
}
