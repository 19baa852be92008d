// Package apperr tags errors with a small set of failure kinds so the
// HTTP layer can map them to status codes without string matching.
package apperr

import "fmt"

type Kind string

const (
	KindTransport  Kind = "transport"
	KindStore      Kind = "store"
	KindValidation Kind = "validation"
	KindBusiness   Kind = "business"
)

// Error wraps an underlying error with a Kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Transport(msg string, err error) *Error  { return Wrap(KindTransport, msg, err) }
func Store(msg string, err error) *Error      { return Wrap(KindStore, msg, err) }
func Validation(msg string) *Error            { return New(KindValidation, msg) }
func Business(msg string) *Error              { return New(KindBusiness, msg) }

// KindOf extracts the Kind of err if it (or something it wraps) is an
// *Error; ok is false otherwise.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	for err != nil {
		if e, isApp := err.(*Error); isApp {
			appErr = e
			break
		}
		u, isUnwrap := err.(interface{ Unwrap() error })
		if !isUnwrap {
			break
		}
		err = u.Unwrap()
	}
	if appErr == nil {
		return "", false
	}
	return appErr.Kind, true
}
