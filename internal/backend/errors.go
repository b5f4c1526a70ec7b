package backend

import (
	"errors"
	"fmt"
)

// ErrRequestFailed matches every *RequestFailure.
var ErrRequestFailed = errors.New("backend: request failed")

// Operation names, matching the endpoint path segment.
const (
	OpGetAll = "GetAll"
	OpCreate = "Create"
	OpUpdate = "Update"
	OpDelete = "Delete"
)

// RequestFailure describes a failed REST call.
//
// StatusCode is zero when no HTTP response was received. Message carries
// the server's errorMessage when it sent one.
type RequestFailure struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestFailure) Error() string {
	msg := fmt.Sprintf("backend: %s failed", e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *RequestFailure) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrRequestFailed.
func (e *RequestFailure) Is(target error) bool {
	return target == ErrRequestFailed
}
