package remote

import (
	"errors"
	"fmt"
)

// TransportError indicates a network or HTTP failure while fetching
// tasks: connection errors, timeouts, and non-2xx responses.
type TransportError struct {
	// Status is the HTTP status code, or 0 when the request never
	// produced a response.
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote returned status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("remote request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err (or any error in its chain) is a
// TransportError.
func IsTransportError(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// EmptyPayloadError indicates the server answered successfully but with
// zero tasks. The remote is authoritative, so an empty payload is
// treated as an anomaly rather than a request to wipe the local cache.
type EmptyPayloadError struct {
	URL string
}

func (e *EmptyPayloadError) Error() string {
	if e.URL == "" {
		return "remote returned an empty task set"
	}
	return fmt.Sprintf("remote %s returned an empty task set", e.URL)
}

// IsEmptyPayloadError reports whether err (or any error in its chain)
// is an EmptyPayloadError.
func IsEmptyPayloadError(err error) bool {
	var emptyErr *EmptyPayloadError
	return errors.As(err, &emptyErr)
}
