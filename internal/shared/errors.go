package shared

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error wraps exactly one of these so the HTTP
// boundary can pick a status with errors.Is.
var (
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated indicates a missing, invalid or expired identity.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates a valid identity without sufficient privilege.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a uniqueness or reference violation.
	ErrConflict = errors.New("conflict")
	// ErrRateLimited indicates the caller exceeded a request budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrMethodNotAllowed indicates a known route hit with an unsupported method.
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// Machine readable failure codes carried in error envelopes.
const (
	CodeValidation           = "VALIDATION_FAILED"
	CodeUnauthenticated      = "UNAUTHENTICATED"
	CodeForbidden            = "FORBIDDEN"
	CodeElevatedRoleRequired = "ELEVATED_ROLE_REQUIRED"
	CodeNotFound             = "NOT_FOUND"
	CodeConflict             = "CONFLICT"
	CodeRateLimited          = "RATE_LIMITED"
	CodeMethodNotAllowed     = "METHOD_NOT_ALLOWED"
	CodeInternal             = "INTERNAL"
)

var (
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = &Error{Kind: ErrUnauthenticated, Code: CodeUnauthenticated, Message: "invalid email or password"}
	// ErrTokenInvalid is returned when a token signature, format or claim does not validate.
	ErrTokenInvalid = &Error{Kind: ErrUnauthenticated, Code: CodeUnauthenticated, Message: "invalid token"}
	// ErrTokenExpired is returned when a token expiry has elapsed.
	ErrTokenExpired = &Error{Kind: ErrUnauthenticated, Code: CodeUnauthenticated, Message: "token expired"}
	// ErrTooManyRequests is returned by rate limiters.
	ErrTooManyRequests = &Error{Kind: ErrRateLimited, Code: CodeRateLimited, Message: "too many requests, slow down"}
)

// Error is a classified domain error with a message that is safe to show to callers.
type Error struct {
	Kind    error
	Code    string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes both the kind and the underlying cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// WithCause returns a copy of e that wraps err.
func (e *Error) WithCause(err error) *Error {
	clone := *e
	clone.Err = err
	return &clone
}

// Validation builds a validation error with optional per-field problems.
func Validation(message string, fields map[string]string) *Error {
	return &Error{Kind: ErrValidation, Code: CodeValidation, Message: message, Fields: fields}
}

// NotFoundf builds a not found error.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Kind: ErrNotFound, Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// Conflictf builds a conflict error.
func Conflictf(format string, args ...any) *Error {
	return &Error{Kind: ErrConflict, Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

// Forbiddenf builds a forbidden error.
func Forbiddenf(format string, args ...any) *Error {
	return &Error{Kind: ErrForbidden, Code: CodeForbidden, Message: fmt.Sprintf(format, args...)}
}

// ElevatedRoleRequired builds the forbidden error clients treat as a loss of privilege.
func ElevatedRoleRequired(message string) *Error {
	return &Error{Kind: ErrForbidden, Code: CodeElevatedRoleRequired, Message: message}
}

// MethodNotAllowedf builds the error for an unsupported HTTP method.
func MethodNotAllowedf(format string, args ...any) *Error {
	return &Error{Kind: ErrMethodNotAllowed, Code: CodeMethodNotAllowed, Message: fmt.Sprintf(format, args...)}
}

// Unauthenticatedf builds an authentication failure.
func Unauthenticatedf(format string, args ...any) *Error {
	return &Error{Kind: ErrUnauthenticated, Code: CodeUnauthenticated, Message: fmt.Sprintf(format, args...)}
}

// UserSafeMessage returns a message that can be shown to API callers.
func UserSafeMessage(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Message != "" {
		return domainErr.Message
	}
	switch {
	case errors.Is(err, ErrValidation):
		return "request validation failed"
	case errors.Is(err, ErrUnauthenticated):
		return "authentication required"
	case errors.Is(err, ErrForbidden):
		return "insufficient privileges"
	case errors.Is(err, ErrNotFound):
		return "resource not found"
	case errors.Is(err, ErrConflict):
		return "resource already exists"
	}
	return "internal server error"
}

// CodeOf returns the failure code for err, defaulting to CodeInternal.
func CodeOf(err error) string {
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code
	}
	switch {
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrUnauthenticated):
		return CodeUnauthenticated
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrConflict):
		return CodeConflict
	}
	return CodeInternal
}

// FieldsOf returns the per-field problems attached to a validation error.
func FieldsOf(err error) map[string]string {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Fields
	}
	return nil
}
