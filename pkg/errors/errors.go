// Package errors provides structured error handling for the feature store
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents malformed caller input (schema, time column, time unit)
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeAlreadyExists represents a tripped collision guard
	ErrorTypeAlreadyExists ErrorType = "already_exists"
	// ErrorTypeMalformedPath represents an unparseable storage path
	ErrorTypeMalformedPath ErrorType = "malformed_path"
	// ErrorTypeSchemaMismatch represents an append incompatible with the stored schema
	ErrorTypeSchemaMismatch ErrorType = "schema_mismatch"
	// ErrorTypeRemote represents a transport-level non-success from a collaborator
	ErrorTypeRemote ErrorType = "remote"
	// ErrorTypeQuery represents query lifecycle errors
	ErrorTypeQuery ErrorType = "query"
	// ErrorTypeNotFound represents resource not found errors
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeData represents data processing errors
	ErrorTypeData ErrorType = "data"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Kind    error
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the taxonomy kind of this error.
func (e *Error) Is(target error) bool {
	return e.Kind != nil && e.Kind == target
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates an error of the given taxonomy kind. The type is derived
// from the kind.
func Newf(kind error, format string, args ...interface{}) *Error {
	return &Error{
		Type:    TypeOf(kind),
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// WrapKind wraps err as an error of the given taxonomy kind.
func WrapKind(err error, kind error, message string) *Error {
	if err == nil {
		return nil
	}
	wrapped := Wrap(err, TypeOf(kind), message)
	if len(wrapped.Stack) == 0 {
		wrapped.Stack = captureStack(2)
	}
	wrapped.Kind = kind
	return wrapped
}

// IsRetryable returns true if the error is retryable. Only an exhausted
// query poll is; every other failure is surfaced as-is.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrQueryNotComplete)
}

// IsType checks if the error is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Type == errType
}

// Is is errors.Is re-exported so callers need a single import.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As re-exported so callers need a single import.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
