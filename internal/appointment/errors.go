package appointment

import (
	"errors"
	"fmt"
)

// Error kinds. None of them is fatal: every failure is recoverable by the
// user retrying.
var (
	ErrFetchFailed         = errors.New("fetch failed")
	ErrSubmitFailed        = errors.New("submit failed")
	ErrRemoteUpdateFailed  = errors.New("remote update failed")
	ErrValidationFailed    = errors.New("validation failed")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Error carries a kind, the failing operation and the underlying cause.
// errors.Is matches both the kind and the cause.
type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func FetchFailed(op string, err error) error { return newError(ErrFetchFailed, op, err) }

func SubmitFailed(op string, err error) error { return newError(ErrSubmitFailed, op, err) }

func RemoteUpdateFailed(op string, err error) error {
	return newError(ErrRemoteUpdateFailed, op, err)
}

func ValidationFailed(op string, format string, args ...any) error {
	return newError(ErrValidationFailed, op, fmt.Errorf(format, args...))
}
