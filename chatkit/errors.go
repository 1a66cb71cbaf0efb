package chatkit

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	// ErrorUnknown is the zero value; never returned deliberately.
	ErrorUnknown ErrorCode = iota

	// ErrorNotActiveMode means the operation requires an active-mode client.
	ErrorNotActiveMode

	// ErrorConnectionNotSuccessful means a connect attempt ended without a
	// connection id. The underlying cause, if known, is wrapped.
	ErrorConnectionNotSuccessful

	// ErrorMissingToken means a token waiter resolved to absence.
	ErrorMissingToken

	// ErrorMissingConnectionID means a connection-id waiter resolved to absence.
	ErrorMissingConnectionID

	// ErrorClientDeallocated means the owning client was destroyed mid-operation.
	ErrorClientDeallocated

	// ErrorConnectionWasNotInitiated means reload was called with no identity,
	// no token provider, and no current user to resume.
	ErrorConnectionWasNotInitiated

	// ErrorTimeout means a waiter expired before its value arrived.
	ErrorTimeout

	// ErrorInvalidToken means a token string could not be parsed or carries
	// no user id claim.
	ErrorInvalidToken

	// ErrorNotConnected is delivered to flushed pending requests.
	ErrorNotConnected
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorNotActiveMode:
		return "not_active_mode"
	case ErrorConnectionNotSuccessful:
		return "connection_not_successful"
	case ErrorMissingToken:
		return "missing_token"
	case ErrorMissingConnectionID:
		return "missing_connection_id"
	case ErrorClientDeallocated:
		return "client_deallocated"
	case ErrorConnectionWasNotInitiated:
		return "connection_was_not_initiated"
	case ErrorTimeout:
		return "timeout"
	case ErrorInvalidToken:
		return "invalid_token"
	case ErrorNotConnected:
		return "not_connected"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// ChatError is a structured error with code and context.
type ChatError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *ChatError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is support; two ChatErrors match on Code alone.
func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new ChatError with the given code and message.
func NewError(code ErrorCode, message string) *ChatError {
	return &ChatError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with a ChatError.
func WrapError(code ErrorCode, message string, err error) *ChatError {
	return &ChatError{
		Code:    code,
		Message: message,
		Wrapped: err,
	}
}

// HasCode reports whether err carries the given ErrorCode anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	var ce *ChatError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == code
}
