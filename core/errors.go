package core

import (
	"net/http"

	"github.com/pkg/errors"
)

var (
	// ErrNotAuthenticated is returned by every write attempted without a session.
	ErrNotAuthenticated = &AuthError{Message: "Not authenticated"}
	// ErrRecoveryRequired is returned when a password update is attempted outside a recovery session.
	ErrRecoveryRequired = &AuthError{Message: "Invalid or expired link"}

	ErrRecordNotFound = errors.New("record not found")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// FirstMessage returns the first field message, or the error itself when there are no fields.
func (err ValidationError) FirstMessage() string {
	if len(err.Fields) > 0 {
		return err.Fields[0].Error
	}
	return err.Error()
}

// AuthError reports a missing, invalid or rejected session.
type AuthError struct {
	Message string
	Err     error
}

func (err AuthError) Error() string { return err.Message }

func (err AuthError) Unwrap() error { return err.Err }

// RemoteError is a transport or server-reported failure of the hosted store or auth service.
// Message is human readable and shown to the user as is.
type RemoteError struct {
	Op      string
	Status  int
	Code    string
	Message string
	Err     error
}

func NewRemoteError(op string, status int, msg string, err error) error {
	return &RemoteError{Op: op, Status: status, Message: msg, Err: err}
}

func (err RemoteError) Error() string {
	if err.Message != "" {
		return err.Message
	}
	if err.Err != nil {
		return err.Err.Error()
	}
	return http.StatusText(err.Status)
}

func (err RemoteError) Unwrap() error { return err.Err }

func (err RemoteError) NotFound() bool {
	return err.Status == http.StatusNotFound || errors.Is(err.Err, ErrRecordNotFound)
}

func IsAuthError(err error) bool {
	_, ok := errors.Cause(err).(*AuthError)
	return ok
}

func IsRemoteError(err error) bool {
	_, ok := errors.Cause(err).(*RemoteError)
	return ok
}

func IsValidationError(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}

// Message returns the user-facing message of `err`, unwrapping layer annotations.
func Message(err error) string {
	if err == nil {
		return ""
	}
	switch origErr := errors.Cause(err).(type) {
	case *ValidationError:
		return origErr.FirstMessage()
	case *AuthError:
		return origErr.Message
	case *RemoteError:
		return origErr.Error()
	}
	return err.Error()
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
