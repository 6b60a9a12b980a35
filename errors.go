package refetch

import (
	"errors"
	"fmt"
)

var (
	// ErrCancelled is returned by Execute when the request was cancelled
	// before a response could be recorded. This happens when a newer Execute
	// call supersedes the request, or when the caller's context is cancelled.
	// The executor's state is left untouched, and the error is not meant to
	// be surfaced to an end user.
	ErrCancelled = errors.New("refetch: the request was cancelled")
	// ErrClosed is returned by Execute and Refetch once the executor has
	// been closed.
	ErrClosed = errors.New("refetch: the executor has been closed")
	// ErrInvalidType is returned when a cache entry can't be asserted to the
	// executor's payload type.
	ErrInvalidType = errors.New("refetch: invalid response type")
)

// RequestError is returned when the server responds with a non-2xx status
// code. It carries the status so that the caller can decide how to react.
type RequestError struct {
	StatusCode int
	Status     string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("refetch: request failed with status %s", e.Status)
}

// Is matches two RequestErrors on their status code.
func (e *RequestError) Is(target error) bool {
	var requestErr *RequestError
	if !errors.As(target, &requestErr) {
		return false
	}
	return e.StatusCode == requestErr.StatusCode
}

// NetworkError is returned when the request failed at the transport level,
// e.g. an unreachable host or a malformed response body.
type NetworkError struct {
	err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("refetch: network error: %v", e.err)
}

func (e *NetworkError) Unwrap() error {
	return e.err
}
