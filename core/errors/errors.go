// Package errors provides the error taxonomy shared by the cross-reference engine
// and the layers that load documents and serve queries.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrInvalidFormat indicates a malformed range token or description row
	ErrInvalidFormat = errors.New("invalid format")
	// ErrInvalidState indicates an operation was requested before its preconditions held
	ErrInvalidState = errors.New("invalid state")
	// ErrNotFound indicates a group, side or document was not found
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput indicates invalid caller input outside the description format
	ErrInvalidInput = errors.New("invalid input")
)

// FormatError reports a malformed cross-reference description.
// Row is the 1-based row in file order, 0 when the error is not tied to a row.
type FormatError struct {
	Row     int    // Description row (1-based), 0 if unknown
	Side    string // "left" or "right", empty if not side specific
	Token   string // Offending token or field
	Message string // Human-readable detail
	Err     error  // Underlying error, if any
}

func (e *FormatError) Error() string {
	msg := e.Message
	if e.Token != "" {
		msg = fmt.Sprintf("%s in %q", msg, e.Token)
	}
	switch {
	case e.Row > 0 && e.Side != "":
		return fmt.Sprintf("invalid cross-reference at row %d (%s): %s", e.Row, e.Side, msg)
	case e.Row > 0:
		return fmt.Sprintf("invalid cross-reference at row %d: %s", e.Row, msg)
	default:
		return fmt.Sprintf("invalid range: %s", msg)
	}
}

func (e *FormatError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidFormat
}

// Is lets errors.Is match ErrInvalidFormat even when Err holds a parser error.
func (e *FormatError) Is(target error) bool {
	return target == ErrInvalidFormat
}

// StateError reports an operation attempted in the wrong lifecycle state,
// e.g. loading a cross-reference before both documents are loaded.
type StateError struct {
	Operation string // Operation that was attempted
	Reason    string // Why it cannot proceed
}

func (e *StateError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("cannot %s: %s", e.Operation, e.Reason)
	}
	return e.Reason
}

func (e *StateError) Unwrap() error {
	return ErrInvalidState
}

// NotFoundError represents a resource not found error with context
type NotFoundError struct {
	Resource string // Type of resource (e.g., "group", "side", "document")
	ID       string // Identifier of the resource
	Err      error  // Underlying error, if any
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrNotFound
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "open")
	Path      string // File path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Helper functions for creating common errors

// NewFormat creates a FormatError that is not tied to a row
func NewFormat(token, message string) *FormatError {
	return &FormatError{
		Token:   token,
		Message: message,
	}
}

// NewState creates a StateError
func NewState(operation, reason string) *StateError {
	return &StateError{
		Operation: operation,
		Reason:    reason,
	}
}

// NewNotFound creates a NotFoundError
func NewNotFound(resource, id string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		ID:       id,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// Code is a short classification of an error, used as a log field and to pick
// the CLI exit status.
type Code string

const (
	CodeUnknown  Code = "unknown"
	CodeFormat   Code = "format"
	CodeState    Code = "state"
	CodeNotFound Code = "not_found"
	CodeInput    Code = "input"
	CodeIO       Code = "io"
)

// Classify maps err onto a Code. Only sentinels and typed errors are
// inspected, never message text.
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	var ioErr *IOError
	switch {
	case errors.Is(err, ErrInvalidFormat):
		return CodeFormat
	case errors.Is(err, ErrInvalidState):
		return CodeState
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrInvalidInput):
		return CodeInput
	case errors.As(err, &ioErr):
		return CodeIO
	}
	return CodeUnknown
}

// ExitCode returns the process exit status for err. Nil maps to 0.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch Classify(err) {
	case CodeFormat:
		return 2
	case CodeState:
		return 3
	case CodeNotFound:
		return 4
	case CodeIO:
		return 5
	}
	return 1
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
