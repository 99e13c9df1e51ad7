// Package apperror defines the error taxonomy shared by every layer.
//
// Services return these kinds; the HTTP layer maps them to status codes and
// the CLI prints the Message. Callers test for a kind with errors.Is and pull
// the user-facing text out with errors.As.
package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("Validation Error")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrLoadFailure marks a failed directory load. It stays in place until a
	// later load succeeds.
	ErrLoadFailure = errors.New("load failure")
	// ErrAuthFailure is a recoverable, user-facing credentials problem.
	ErrAuthFailure = errors.New("authentication failure")
	// ErrTokenInvalid covers malformed, tampered or expired persisted tokens.
	// It is logged and downgraded to "logged out", never shown to the user.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrRemote is a transport-level failure talking to the countries API.
	ErrRemote = errors.New("remote failure")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Unauthorized is returned by operations that need an active session.
func Unauthorized(message string) *AppError {
	return &AppError{
		Err:     ErrUnauthorized,
		Message: message,
	}
}

// LoadFailed wraps the cause of a failed directory load behind a message that
// tells the user a retry is worthwhile.
func LoadFailed(cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrLoadFailure, cause),
		Message: "Failed to fetch countries. Please try again later.",
	}
}

// LookupNotFound reports that no country exists for code. cause is kept in
// the chain so a transport failure can still be told apart from a clean miss.
func LookupNotFound(code string, cause error) *AppError {
	err := error(ErrNotFound)
	if cause != nil && !errors.Is(cause, ErrNotFound) {
		err = errors.Join(ErrNotFound, cause)
	}
	return &AppError{
		Err:     err,
		Message: fmt.Sprintf("country not found with code %s", code),
	}
}

// AuthFailed carries the message shown on the login or register form.
func AuthFailed(message string) *AppError {
	return &AppError{
		Err:     ErrAuthFailure,
		Message: message,
	}
}

// AuthFailedWith is AuthFailed for unexpected problems (timeouts, storage
// errors) where the cause should stay in the chain for logging.
func AuthFailedWith(message string, cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrAuthFailure, cause),
		Message: message,
	}
}

// TokenInvalid wraps a token decoding or expiry problem.
func TokenInvalid(cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrTokenInvalid, cause),
		Message: "session token is invalid",
	}
}

// Remote wraps a transport failure from the countries API.
func Remote(op string, cause error) *AppError {
	return &AppError{
		Err:     errors.Join(ErrRemote, cause),
		Message: fmt.Sprintf("countries API request failed: %s", op),
	}
}
