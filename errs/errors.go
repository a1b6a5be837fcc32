// Package errs provides the structured failure type returned by the detector,
// the executor and the notification sender.
//
// Every failure carries a machine-readable Kind that the tool boundary emits
// as the "error" tag, a human-readable message and, where one exists, a
// suggestion for the caller.
package errs

import (
	"errors"
	"fmt"
)

// Kind categorises a failure.
type Kind string

const (
	KindUnknown          Kind = "unknown"
	KindConnectionFailed Kind = "connection_failed"
	KindTimeout          Kind = "timeout"
	KindSchemaDiscovery  Kind = "schema_discovery_failed"
	KindNoMainTable      Kind = "no_main_table"
	KindQueryFailed      Kind = "query_failed"
	KindTransportFailed  Kind = "transport_failed"
	KindInvalidInput     Kind = "invalid_input"
)

// Error is the single failure type crossing package boundaries.
type Error struct {
	Kind       Kind
	Message    string
	Suggestion string
	Details    map[string]any
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithSuggestion sets the suggestion and returns e.
func (e *Error) WithSuggestion(s string) *Error {
	e.Suggestion = s
	return e
}

// WithDetails merges details into e and returns e.
func (e *Error) WithDetails(details map[string]any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// New creates an *Error with no cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf creates an *Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error around an underlying cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// As returns the *Error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf extracts the Kind from any error in the chain.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// IsConnectionFailed reports whether err means the backing service could not be reached.
func IsConnectionFailed(err error) bool {
	return KindOf(err) == KindConnectionFailed
}

// IsInvalidInput reports whether err was caused by bad input from the caller.
func IsInvalidInput(err error) bool {
	return KindOf(err) == KindInvalidInput
}

// IsTransportFailed reports whether err is an email transport failure.
func IsTransportFailed(err error) bool {
	return KindOf(err) == KindTransportFailed
}
