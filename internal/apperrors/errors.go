// Package apperrors defines the error taxonomy shared by the core components.
//
// Every specific error unwraps to exactly one category sentinel, so callers
// can branch on the category with errors.Is while still showing the specific
// message to the client.
package apperrors

import "errors"

// Error categories.
var (
	ErrValidation     = errors.New("validation error")
	ErrAuthentication = errors.New("authentication error")
	ErrAuthorization  = errors.New("authorization error")
	ErrNotFound       = errors.New("not found")
)

// Error is a categorized failure carrying a client-safe message.
type Error struct {
	Kind    error  // One of the category sentinels
	Message string // Human readable message, safe to return to clients
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// New creates an Error of the given category.
func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Validation errors.
var (
	ErrCredentialsRequired = New(ErrValidation, "Email and password are required")
	ErrFieldsRequired      = New(ErrValidation, "All fields are required")
	ErrEmailTaken          = New(ErrValidation, "Email already registered")
	ErrPasswordTooLong     = New(ErrValidation, "Password is too long")
	ErrTitleRequired       = New(ErrValidation, "Title is required")
	ErrInvalidBody         = New(ErrValidation, "Invalid request body")
)

// Authentication errors.
var (
	ErrMissingToken       = New(ErrAuthentication, "Token is missing")
	ErrMalformedHeader    = New(ErrAuthentication, "Invalid token format")
	ErrTokenExpired       = New(ErrAuthentication, "Token has expired")
	ErrTokenInvalid       = New(ErrAuthentication, "Token is invalid")
	ErrUserNotFound       = New(ErrAuthentication, "User not found")
	ErrInvalidCredentials = New(ErrAuthentication, "Invalid email or password")
)

// Authorization and lookup errors.
var (
	ErrForbidden    = New(ErrAuthorization, "Unauthorized")
	ErrItemNotFound = New(ErrNotFound, "Item not found")
)

// Message returns the client-safe message of a categorized error, or
// fallback when err carries none.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return fallback
}
