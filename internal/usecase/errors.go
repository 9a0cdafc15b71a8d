package usecase

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	ErrorInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrorNotConfigured      ErrorCode = "NOT_CONFIGURED"
	ErrorUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrorRateLimited        ErrorCode = "RATE_LIMITED"
	ErrorUpstream           ErrorCode = "UPSTREAM_ERROR"
	ErrorConflict           ErrorCode = "CONFLICT"
	ErrorInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrorInvalidSession     ErrorCode = "INVALID_SESSION"
	ErrorNotFound           ErrorCode = "NOT_FOUND"
	ErrorInternal           ErrorCode = "INTERNAL_ERROR"
)

// Error is the typed failure returned by every use case. Message is the
// caller-facing text; Reason is a stable token for logs and metrics.
type Error struct {
	Code    ErrorCode
	Reason  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason, message string, err error) *Error {
	return &Error{Code: code, Reason: reason, Message: message, Err: err}
}

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var ue *Error
	if errors.As(err, &ue) && ue != nil {
		return ue, true
	}
	return nil, false
}
