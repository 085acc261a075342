package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeAuthorization = "authorization_error"
	ErrCodeForbidden     = "forbidden"
	ErrCodeConflict      = "conflict"
	ErrCodeValidation    = "validation_error"
	ErrCodeNotFound      = "not_found"
	ErrCodeTransient     = "transient_error"
)

var (
	// ErrAuthorization is returned when the actor lacks the required role.
	ErrAuthorization = errors.New("authorization required")
	// ErrForbidden is returned when a banned user attempts to send a message.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned on duplicate votes and double poll opens.
	ErrConflict = errors.New("conflict")
	// ErrValidation is returned for malformed payloads.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound is returned for unknown rooms and polls.
	ErrNotFound = errors.New("not found")
	// ErrTransient is returned when a collaborator call fails; callers retry.
	ErrTransient = errors.New("transient failure")
)

// CoreError wraps a code and human-readable message. Room-mutation errors are
// returned synchronously to the originating connection only; they never affect
// other subscribers and never leave room state partially updated.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// Unwrap maps the code back to its sentinel so callers can use errors.Is.
func (e *CoreError) Unwrap() error {
	switch e.Code {
	case ErrCodeAuthorization:
		return ErrAuthorization
	case ErrCodeForbidden:
		return ErrForbidden
	case ErrCodeConflict:
		return ErrConflict
	case ErrCodeValidation:
		return ErrValidation
	case ErrCodeNotFound:
		return ErrNotFound
	case ErrCodeTransient:
		return ErrTransient
	default:
		return nil
	}
}

func authorizationError(msg string) *CoreError {
	return &CoreError{Code: ErrCodeAuthorization, Message: msg}
}

func forbiddenError(msg string) *CoreError {
	return &CoreError{Code: ErrCodeForbidden, Message: msg}
}

func conflictError(msg string) *CoreError {
	return &CoreError{Code: ErrCodeConflict, Message: msg}
}

func validationError(msg string) *CoreError {
	return &CoreError{Code: ErrCodeValidation, Message: msg}
}

func notFoundError(msg string) *CoreError {
	return &CoreError{Code: ErrCodeNotFound, Message: msg}
}

func transientError(msg string) *CoreError {
	return &CoreError{Code: ErrCodeTransient, Message: msg}
}

// ErrorCode extracts the domain code from err, or an empty string if err is
// not a CoreError.
func ErrorCode(err error) string {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
