package source

import "errors"

var (
	// ErrRequestFailed is returned when a request to the source cannot complete.
	ErrRequestFailed = errors.New("source request failed")

	// ErrTimeout is returned when the source does not answer within the response timeout.
	ErrTimeout = errors.New("source request timed out")
)
