package processor

import "errors"

var (
	// ErrUnavailable means the remote service could not be reached or answered
	// with a server error. The job still fails; retrying is the caller's call.
	ErrUnavailable = errors.New("processing service unavailable")
	// ErrRemote means the remote service answered but reported a processing
	// failure. Never retryable with the same input.
	ErrRemote = errors.New("processing service error")
)
