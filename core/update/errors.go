package update

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind categorizes the failure modes the writer can raise. All of them
// are fatal: there is no local retry or partial-output recovery, only
// abort-and-bubble-up with enough context to diagnose (dictionary key
// chain, object reference).
type ErrorKind string

const (
	ErrNullObject         ErrorKind = "NULL_OBJECT"
	ErrNullReference      ErrorKind = "NULL_REFERENCE"
	ErrDuplicateEntry     ErrorKind = "DUPLICATE_ENTRY"
	ErrUnsupportedValue   ErrorKind = "UNSUPPORTED_VALUE_KIND"
	ErrInvalidStringKind  ErrorKind = "INVALID_STRING_KIND"
	ErrIO                 ErrorKind = "IO_ERROR"
	ErrCompression        ErrorKind = "COMPRESSION_ERROR"
	ErrEncryption         ErrorKind = "ENCRYPTION_ERROR"
)

// UpdateError is the structured error type raised by every operation in
// this package; Driver methods return it wrapped once more by errors.Wrap or
// errors.Wrapf, so errors.As and errors.Is reach it through the chain. It mirrors the document-parser's PDFError (code, message,
// cause, context) and additionally carries a pkg/errors stack via Cause,
// so callers that want a stack trace get one through errors.Wrap's chain.
type UpdateError struct {
	Kind    ErrorKind
	Message string
	Cause   error
	Ref     *Reference
	Key     string // enclosing dictionary key, when known
}

func (e *UpdateError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Ref != nil {
		msg += fmt.Sprintf(" (object %s)", e.Ref.String())
	}
	if e.Key != "" {
		msg += fmt.Sprintf(" (key %q)", e.Key)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *UpdateError) Unwrap() error { return e.Cause }

// Is matches another *UpdateError by Kind, the same pattern PDFError uses
// for errors.Is.
func (e *UpdateError) Is(target error) bool {
	t, ok := target.(*UpdateError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind ErrorKind, message string) *UpdateError {
	return &UpdateError{Kind: kind, Message: message}
}

func wrapError(kind ErrorKind, cause error, message string) *UpdateError {
	return &UpdateError{Kind: kind, Message: message, Cause: errors.Wrap(cause, message)}
}

func (e *UpdateError) withRef(ref Reference) *UpdateError {
	e.Ref = &ref
	return e
}

func (e *UpdateError) withKey(key string) *UpdateError {
	e.Key = key
	return e
}
