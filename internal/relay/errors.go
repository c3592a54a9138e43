package relay

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeNotConfigured  ErrorCode = "NOT_CONFIGURED"
	CodeDeliveryFailed ErrorCode = "DELIVERY_FAILED"
	CodeMissingTarget  ErrorCode = "MISSING_TARGET"
	CodeEmptyLog       ErrorCode = "EMPTY_LOG"
	CodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	CodeInternal       ErrorCode = "INTERNAL"
)

// Error is a relay failure with a code the inbound boundary turns into a
// user-facing notice.
type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

// Sentinels for errors.Is; they match any *Error with the same code.
var (
	ErrNotConfigured  = &Error{Code: CodeNotConfigured, Reason: "no operator configured"}
	ErrDeliveryFailed = &Error{Code: CodeDeliveryFailed, Reason: "delivery failed"}
	ErrMissingTarget  = &Error{Code: CodeMissingTarget, Reason: "no pending reply target"}
	ErrEmptyLog       = &Error{Code: CodeEmptyLog, Reason: "log is empty"}
	ErrUnauthorized   = &Error{Code: CodeUnauthorized, Reason: "operator only"}
)

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("relay: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("relay: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches on the code so wrapped failures compare equal to the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && e != nil && t.Code == e.Code
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}

// CodeOf returns the code of the first *Error in err's chain, or
// CodeInternal.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
