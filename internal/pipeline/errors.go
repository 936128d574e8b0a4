package pipeline

import "errors"

var (
	// ErrUnsupportedToolType means the requested tool type has no handler.
	// A job is never created, let alone run, for an unsupported tool.
	ErrUnsupportedToolType = errors.New("unsupported tool type")
	// ErrValidation means the job input is malformed for its tool type, e.g.
	// document_chat without a file id. The job fails before any stage runs.
	ErrValidation = errors.New("invalid job input")
	// ErrPollTimeout means a nested remote operation exhausted its polling
	// attempts. Distinct from the overall processing budget timeout.
	ErrPollTimeout = errors.New("remote operation polling timed out")
)
