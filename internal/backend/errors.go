package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for backend operations.
var (
	// ErrUnavailable covers transport failures, 5xx responses and an open circuit.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrRejected means the backend refused the request (4xx).
	ErrRejected = errors.New("request rejected by backend")
	// ErrUnauthorized means the credentials were missing or refused.
	ErrUnauthorized = errors.New("not authorized by backend")
	// ErrNotFound means the addressed trip does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDecode means the backend answered with a body that could not be decoded.
	ErrDecode = errors.New("malformed backend response")
	// ErrLogFetchFailed is the single outcome of a log fetch whose retries are exhausted.
	ErrLogFetchFailed = errors.New("log fetch failed")
)

// Error describes a failed backend call.
type Error struct {
	Op         string // operation, e.g. "start trip"
	StatusCode int    // HTTP status, 0 when no response was received
	Detail     string // backend-provided explanation, if any
	Err        error  // one of the sentinels above
	Cause      error  // underlying transport or decode error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Err.Error()
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

// IsRetryable returns true for transient failures.
func (e *Error) IsRetryable() bool {
	return errors.Is(e.Err, ErrUnavailable)
}

func errorForStatus(op string, status int, detail string) *Error {
	e := &Error{Op: op, StatusCode: status, Detail: detail}
	switch {
	case status == http.StatusNotFound:
		e.Err = ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Err = ErrUnauthorized
	case status >= 500:
		e.Err = ErrUnavailable
	default:
		e.Err = ErrRejected
	}
	return e
}
