package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeIDExists             = "ID_EXISTS"
	ErrCodeDuplicateApplication = "DUPLICATE_APPLICATION_ID"
	ErrCodeImport               = "IMPORT_ERROR"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeInvariant            = "INVARIANT_VIOLATION"
	ErrCodeLastProcess          = "LAST_PROCESS"
	ErrCodeExpression           = "EXPRESSION_ERROR"
	ErrCodeStore                = "STORE_ERROR"
)

// FlowError is the structured error type for all flowedit operations.
// Validation and import failures are returned as values so callers can
// render them inline; nothing in the core panics on user input.
type FlowError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	ProcessID int            `json:"process_id,omitempty"`
	Cause     error          `json:"-"`
}

func (e *FlowError) Error() string {
	if e.ProcessID != 0 {
		return fmt.Sprintf("[%s] process %d: %s", e.Code, e.ProcessID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *FlowError) Unwrap() error {
	return e.Cause
}

// NewError creates a new FlowError.
func NewError(code, message string) *FlowError {
	return &FlowError{Code: code, Message: message}
}

// NewErrorf creates a new FlowError with a formatted message.
func NewErrorf(code, format string, args ...any) *FlowError {
	return &FlowError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithProcess attaches a process ID to the error.
func (e *FlowError) WithProcess(processID int) *FlowError {
	e.ProcessID = processID
	return e
}

// WithCause attaches an underlying cause.
func (e *FlowError) WithCause(err error) *FlowError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *FlowError) WithDetails(details map[string]any) *FlowError {
	e.Details = details
	return e
}

// ErrorCode returns the code of the first FlowError in err's chain, or "".
func ErrorCode(err error) string {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe.Code
	}
	return ""
}

// IsCode reports whether err carries the given FlowError code.
func IsCode(err error, code string) bool {
	return ErrorCode(err) == code
}
