package mpesa

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth classifies failures of the OAuth token call.
	ErrAuth = errors.New("mpesa: access token unavailable")
	// ErrRequest classifies failures of the STK push call, timeouts included.
	ErrRequest = errors.New("mpesa: push request failed")
)

// Error is a provider failure. Payload holds the decoded Daraja error body
// (requestId, errorCode, errorMessage, ...) so operators can see it verbatim.
type Error struct {
	Kind       error
	StatusCode int
	Payload    map[string]any
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	case e.Payload != nil:
		return fmt.Sprintf("%v: status %d: %v", e.Kind, e.StatusCode, e.Payload)
	default:
		return fmt.Sprintf("%v: status %d", e.Kind, e.StatusCode)
	}
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
