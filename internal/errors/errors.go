// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages, so callers can tell a timed-out request from a
// malformed SSO code without parsing strings.
//
// Transport failures (non-2xx responses) are not modeled here; they are surfaced
// unchanged as *backend.Error so their status and payload stay intact.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// Timeout indicates the backend did not answer within the configured deadline.
	Timeout Kind = "timeout"
	// Configuration indicates invalid input detected before any request was made.
	Configuration Kind = "configuration"
	// Decode indicates the backend answered with a payload that could not be parsed.
	Decode Kind = "decode"
	// Storage indicates the local secret store could not be read or written.
	Storage Kind = "storage"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is and errors.As.
func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// Is reports whether any error in err's chain is an *E of the given kind.
func Is(err error, kind Kind) bool {
	var e *E
	if !stderrors.As(err, &e) {
		return false
	}
	for e != nil {
		if e.Kind == kind {
			return true
		}
		var next *E
		if !stderrors.As(e.Err, &next) {
			return false
		}
		e = next
	}
	return false
}
