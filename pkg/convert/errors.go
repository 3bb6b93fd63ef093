package convert

import (
	"errors"
	"fmt"
)

// Kind classifies a conversion error. Callers match on the kind, not on
// concrete error types.
type Kind string

const (
	KindFormat     Kind = "format"     // unsupported, identical or unknown format
	KindConversion Kind = "conversion" // engine invocation failure, engine not ready
	KindMemory     Kind = "memory"
	KindNetwork    Kind = "network"
	KindCancelled  Kind = "cancelled"
	KindUnknown    Kind = "unknown"
)

// Error is the single error value surfaced by the orchestrator and the
// batch coordinator. It carries a kind, a human-readable message and an
// optional detail string.
type Error struct {
	Kind    Kind
	Message string
	Detail  string
	Err     error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an Error of the given kind
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError wraps an underlying failure under the given kind
func WrapError(kind Kind, message string, err error) *Error {
	e := &Error{Kind: kind, Message: message, Err: err}
	if err != nil {
		e.Detail = err.Error()
	}
	return e
}

// KindOf extracts the kind from any error. Errors outside this package
// report KindUnknown.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// IsCancelled reports whether err is a cancellation-typed error
func IsCancelled(err error) bool {
	return KindOf(err) == KindCancelled
}
