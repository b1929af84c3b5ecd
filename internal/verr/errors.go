// Package verr defines the error taxonomy shared across the framework.
//
// Every error type carries an open context map for diagnostic detail and,
// where a lower-level failure triggered it, the original error as a
// preserved cause reachable through errors.Unwrap.
package verr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind discriminates the error classes the framework produces.
type Kind string

const (
	KindElementNotFound Kind = "element_not_found"
	KindTimeout         Kind = "timeout"
	KindSession         Kind = "session"
	KindConfig          Kind = "config"
	KindDatabase        Kind = "database"
)

// ErrSessionNotFound is returned when a named session has no file on disk.
// Callers distinguish "never existed / expired" themselves; the framework
// does not.
var ErrSessionNotFound = errors.New("session not found")

// Error is the common shape of all framework errors.
type Error struct {
	Kind    Kind
	Message string
	Context map[string]string
	cause   error
}

// Error renders the message, the sorted context pairs, and the cause.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%s", k, e.Context[k])
		}
		b.WriteString(")")
	}

	if e.cause != nil {
		fmt.Fprintf(&b, ": %v", e.cause)
	}
	return b.String()
}

// Unwrap exposes the originating low-level error.
func (e *Error) Unwrap() error { return e.cause }

// Is allows errors.Is matching against a bare *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// With adds a context pair and returns the error for chaining.
func (e *Error) With(key, value string) *Error {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// New constructs an error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Context: make(map[string]string)}
}

// Wrap constructs an error of the given kind with a preserved cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Context: make(map[string]string), cause: cause}
}

// ElementNotFound reports a locator that matched nothing on the page.
func ElementNotFound(locator string, cause error) *Error {
	return Wrap(KindElementNotFound, "element not found", cause).With("locator", locator)
}

// Timeout reports an operation that exceeded its millisecond budget.
func Timeout(op string, cause error) *Error {
	return Wrap(KindTimeout, "operation timed out", cause).With("operation", op)
}

// Session reports a session persistence or reconnect failure.
func Session(message string, cause error) *Error {
	return Wrap(KindSession, message, cause)
}

// Config reports an invalid or unloadable configuration.
func Config(message string, cause error) *Error {
	return Wrap(KindConfig, message, cause)
}

// Database reports a results-store failure.
func Database(message string, cause error) *Error {
	return Wrap(KindDatabase, message, cause)
}

// IsKind reports whether any error in the chain is a framework error of the
// given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
