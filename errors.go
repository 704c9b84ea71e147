package strongbox

import (
	"errors"
	"fmt"
)

// Sentinel errors returned (wrapped) by filesystem operations. They map
// one-to-one onto the POSIX codes surfaced at the mount boundary.
var (
	ErrNotFound     = errors.New("no such file or directory")
	ErrIsDirectory  = errors.New("is a directory")
	ErrNotDirectory = errors.New("not a directory")
	ErrTooLarge     = errors.New("write exceeds fixed file size")
	ErrInvalid      = errors.New("invalid argument")
	ErrNilConfig    = errors.New("config cannot be nil")
	ErrNilStore     = errors.New("store cannot be nil")
	ErrNilCipher    = errors.New("cipher cannot be nil")
)

// PathError records a failed filesystem operation and the path it targeted.
type PathError struct {
	Op   string // "stat", "list", "open", "read", "write", "truncate", ...
	Path string
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	return e.Err
}

// ValidationError represents a configuration or parameter validation error
type ValidationError struct {
	Field   string // The field or parameter that failed validation
	Value   any    // The invalid value
	Message string // Human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

// Unwrap lets errors.Is(err, ErrInvalid) match every validation failure.
func (e *ValidationError) Unwrap() error {
	return ErrInvalid
}

// CorruptionError reports durable or in-memory state that no longer agrees
// with the tree, such as a snapshot of the wrong length.
type CorruptionError struct {
	Path    string // Snapshot or file path, if applicable
	Message string
	Err     error
}

func (e *CorruptionError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("corruption error: %s: %s", e.Path, e.Message)
	}
	return fmt.Sprintf("corruption error: %s", e.Message)
}

func (e *CorruptionError) Unwrap() error {
	return e.Err
}

func newPathError(op, path string, err error) error {
	return &PathError{Op: op, Path: path, Err: err}
}

// NewValidationError creates a new validation error
func NewValidationError(field string, value any, message string) error {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// NewCorruptionError creates a new corruption error
func NewCorruptionError(path string, message string) error {
	return &CorruptionError{
		Path:    path,
		Message: message,
		Err:     ErrInvalid,
	}
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsCorruptionError checks if an error is a corruption error
func IsCorruptionError(err error) bool {
	var ce *CorruptionError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err resolves to ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
