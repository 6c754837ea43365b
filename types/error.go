package types

import (
	"context"
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the framework.
type ErrorCode string

const (
	// ErrTransport means the reply backend failed or timed out. Never retried
	// by the orchestration core.
	ErrTransport ErrorCode = "TRANSPORT"
	// ErrStructuralValidation means a reply never reached the expected
	// structured shape within the retry bound.
	ErrStructuralValidation ErrorCode = "STRUCTURAL_VALIDATION"
	// ErrPolicyViolation means a precondition or the speaker selection
	// policy could not be satisfied.
	ErrPolicyViolation ErrorCode = "POLICY_VIOLATION"
	// ErrCancelled means the session was stopped by its caller.
	ErrCancelled ErrorCode = "CANCELLED"

	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrInvalidReply   ErrorCode = "INVALID_REPLY"
	ErrChatBusy       ErrorCode = "CHAT_BUSY"
)

// Error represents a structured error with code, message, and location.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Agent     string    `json:"agent,omitempty"`
	Stage     string    `json:"stage,omitempty"`
	Round     int       `json:"round,omitempty"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	where := ""
	if e.Round > 0 {
		where += fmt.Sprintf(" round=%d", e.Round)
	}
	if e.Stage != "" {
		where += " stage=" + e.Stage
	}
	if e.Agent != "" {
		where += " agent=" + e.Agent
	}
	if e.Cause != nil {
		return fmt.Sprintf("[%s]%s %s: %v", e.Code, where, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s]%s %s", e.Code, where, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithAgent records the agent the error originated from.
func (e *Error) WithAgent(agent string) *Error {
	e.Agent = agent
	return e
}

// WithStage records the pipeline stage the error originated from.
func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage
	return e
}

// WithRound records the round the error happened in.
func (e *Error) WithRound(round int) *Error {
	e.Round = round
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// AsError extracts the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries code anywhere in its chain.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// IsCancellation reports whether err is a caller-initiated stop rather than
// a failure.
func IsCancellation(err error) bool {
	if err == nil {
		return false
	}
	if IsErrorCode(err, ErrCancelled) {
		return true
	}
	return errors.Is(err, context.Canceled)
}
