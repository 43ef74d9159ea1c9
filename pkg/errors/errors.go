package errors

import (
	"fmt"
)

// FormatError represents a corrupt or incompatible persisted workflow file.
// Exactly one of Field or Kind is set: Field names a missing required field,
// Kind carries an unrecognized step kind discriminator.
type FormatError struct {
	Path  string
	Field string
	Kind  string
	Err   error
}

// NewFormatError constructs a FormatError for a missing required field.
func NewFormatError(path, field string, err error) error {
	return &FormatError{Path: path, Field: field, Err: err}
}

// NewFormatErrorKind constructs a FormatError for an unrecognized step kind.
func NewFormatErrorKind(path, kind string, err error) error {
	return &FormatError{Path: path, Kind: kind, Err: err}
}

// NewFormatFileError constructs a FormatError for a file that could not be
// read or decoded at all.
func NewFormatFileError(path string, err error) error {
	return &FormatError{Path: path, Err: err}
}

func (e *FormatError) Error() string {
	if e == nil {
		return ""
	}

	where := e.Path
	if where == "" {
		where = "workflow"
	}
	if e.Kind != "" {
		return fmt.Sprintf("format error: %s: unrecognized step kind %q", where, e.Kind)
	}
	if e.Field != "" {
		return fmt.Sprintf("format error: %s: missing required field %q", where, e.Field)
	}
	if e.Err != nil {
		return fmt.Sprintf("format error: %s: %v", where, e.Err)
	}
	return fmt.Sprintf("format error: %s", where)
}

// Unwrap exposes the underlying error.
func (e *FormatError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ValidationError captures malformed step parameters caught at construction
// or edit time.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, message string, err error) error {
	return &ValidationError{Field: field, Message: message, Err: err}
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PrimitiveError indicates an action primitive could not complete.
type PrimitiveError struct {
	Op      string
	Message string
	Err     error
}

// NewPrimitiveError constructs a PrimitiveError for the given operation.
func NewPrimitiveError(op string, err error) error {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &PrimitiveError{Op: op, Message: message, Err: err}
}

func (e *PrimitiveError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("primitive error [%s]: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("primitive error: %s", e.Message)
}

// Unwrap exposes the underlying error.
func (e *PrimitiveError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
