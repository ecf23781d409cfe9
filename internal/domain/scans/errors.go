package scans

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is(err, ErrTimeout) etc.
var (
	// ErrConfiguration: trigger cannot be dispatched as given.
	ErrConfiguration = errors.New("configuration error")
	// ErrDispatch: remote side rejected scan creation.
	ErrDispatch = errors.New("dispatch error")
	// ErrTransientQuery: polling got something other than 404 or a valid status.
	ErrTransientQuery = errors.New("scan status query error")
	// ErrTimeout: attempt budget exhausted before a terminal state.
	ErrTimeout = errors.New("scan timed out")
	// ErrFetch: issues could not be retrieved for a finished scan.
	ErrFetch = errors.New("fetch issues error")
	// ErrRemoteScan: scan reached done with an error message.
	ErrRemoteScan = errors.New("remote scan error")
)

// ErrRunNotFound is returned by RunRepository.Get for unknown ids.
var ErrRunNotFound = errors.New("run not found")

// Error is the typed failure returned by every orchestration stage.
type Error struct {
	Kind   error
	Status int    // HTTP status when one was received
	Detail string // remote message or body
	Err    error  // underlying cause, if any
}

func NewError(kind error, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Status != 0 {
		msg = fmt.Sprintf("%s: status %d", msg, e.Status)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool { return target == e.Kind }

func (e *Error) Unwrap() error { return e.Err }

// Reason is the short message surfaced in a verdict.
func (e *Error) Reason() string {
	if e.Kind == ErrRemoteScan {
		return e.Detail
	}
	return e.Error()
}
