package strongbox

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestPathError(t *testing.T) {
	err := newPathError("read", "/a/F", ErrIsDirectory)

	if !errors.Is(err, ErrIsDirectory) {
		t.Error("PathError does not unwrap to its cause")
	}
	if got := err.Error(); got != "read /a/F: is a directory" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := fmt.Errorf("mount: %w", err)
	var pe *PathError
	if !errors.As(wrapped, &pe) || pe.Op != "read" {
		t.Error("errors.As failed through wrapping")
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("file_size", 10, "too small")

	if !IsValidationError(err) {
		t.Error("IsValidationError returned false")
	}
	if !errors.Is(err, ErrInvalid) {
		t.Error("validation errors should match ErrInvalid")
	}
	if !strings.Contains(err.Error(), "file_size") {
		t.Errorf("Error() = %q, want field name", err.Error())
	}

	bare := &ValidationError{Message: "bad"}
	if bare.Error() != "validation error: bad" {
		t.Errorf("Error() without field = %q", bare.Error())
	}
}

func TestCorruptionError(t *testing.T) {
	err := NewCorruptionError("/backend.data", "short snapshot")

	if !IsCorruptionError(err) {
		t.Error("IsCorruptionError returned false")
	}
	if !errors.Is(err, ErrInvalid) {
		t.Error("corruption errors should match ErrInvalid")
	}
	if IsCorruptionError(ErrNotFound) {
		t.Error("sentinel identified as corruption")
	}
	if !strings.Contains(err.Error(), "/backend.data") {
		t.Errorf("Error() = %q, want path", err.Error())
	}
}

func TestValidateOffsetAndSize(t *testing.T) {
	if err := ValidateOffset(0, "offset"); err != nil {
		t.Errorf("ValidateOffset(0) = %v", err)
	}
	if err := ValidateOffset(-1, "offset"); !IsValidationError(err) {
		t.Errorf("ValidateOffset(-1) = %v, want ValidationError", err)
	}
	if err := ValidateSize(0, "size"); err != nil {
		t.Errorf("ValidateSize(0) = %v", err)
	}
	if err := ValidateSize(-5, "size"); !IsValidationError(err) {
		t.Errorf("ValidateSize(-5) = %v, want ValidationError", err)
	}
}
