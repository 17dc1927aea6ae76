// Package errors provides the typed error taxonomy used across traylib.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Type identifies the category of error
type Type string

const (
	// TypeConfig indicates malformed or missing required configuration.
	// Always fatal, reported before any enumeration happens.
	TypeConfig Type = "CONFIG_ERROR"

	// TypeResolution indicates a name filter (preset, layout, lid style)
	// that references something absent from its source table.
	TypeResolution Type = "RESOLUTION_ERROR"

	// TypeExternalTool indicates a non-zero exit from the renderer or slicer
	TypeExternalTool Type = "EXTERNAL_TOOL_ERROR"

	// TypeEnumerationEmpty indicates that no targets were resolved for a run
	TypeEnumerationEmpty Type = "ENUMERATION_EMPTY"

	// TypeInternal indicates an internal error
	TypeInternal Type = "INTERNAL_ERROR"
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the error is of type t
func (e *Error) Is(t Type) bool {
	return e.Type == t
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// IsType checks whether err, or anything it wraps, is a typed error of kind t.
func IsType(err error, t Type) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// TypeOf returns the type of the first typed error in err's chain, or "".
func TypeOf(err error) Type {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ""
}

// MessageOf returns the message of the first typed error in err's chain
// without the type tag, or err.Error() for untyped errors.
func MessageOf(err error) string {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// Config creates a configuration error
func Config(message string) *Error {
	return New(TypeConfig, message)
}

// Configf creates a formatted configuration error
func Configf(format string, args ...interface{}) *Error {
	return Newf(TypeConfig, format, args...)
}

// Resolution creates a resolution warning for an unknown name in a table.
func Resolution(table, name, source string) *Error {
	return Newf(TypeResolution, "%s named '%s' is not present in %s", table, name, source).
		WithContext("table", table).
		WithContext("name", name)
}

// ExternalTool creates an external tool failure carrying the exit code and output.
func ExternalTool(tool string, exitCode int, stderr string, cause error) *Error {
	return Wrap(TypeExternalTool, fmt.Sprintf("%s exited with code %d", tool, exitCode), cause).
		WithContext("tool", tool).
		WithContext("exit_code", exitCode).
		WithContext("stderr", stderr)
}

// EnumerationEmpty creates the error returned when a run resolves zero targets.
func EnumerationEmpty(guidance string) *Error {
	return New(TypeEnumerationEmpty, guidance)
}

// Internal creates an internal error
func Internal(message string, cause error) *Error {
	return Wrap(TypeInternal, message, cause)
}
