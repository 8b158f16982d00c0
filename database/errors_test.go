package database

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapDBError(t *testing.T) {
	base := errors.New("connection reset")
	wrapped := WrapDBError("Append", base)

	if !errors.Is(wrapped, base) {
		t.Error("wrapped error should match the underlying error")
	}
	var dbErr *DBError
	if !errors.As(wrapped, &dbErr) {
		t.Fatal("wrapped error should be a *DBError")
	}
	if dbErr.Operation != "Append" {
		t.Errorf("Operation = %q, want %q", dbErr.Operation, "Append")
	}
	want := "database error in Append: connection reset"
	if wrapped.Error() != want {
		t.Errorf("Error() = %q, want %q", wrapped.Error(), want)
	}

	if WrapDBError("Append", nil) != nil {
		t.Error("wrapping nil should stay nil")
	}
}

func TestNotFoundError(t *testing.T) {
	tests := []struct {
		resource string
		id       interface{}
		want     string
	}{
		{"scan", nil, "scan not found"},
		{"stock", "2330", "stock not found: 2330"},
	}
	for _, tt := range tests {
		err := NewNotFoundErrorWithID(tt.resource, tt.id)
		if err.Error() != tt.want {
			t.Errorf("NewNotFoundErrorWithID(%q, %v) = %q, want %q", tt.resource, tt.id, err.Error(), tt.want)
		}
		var nf *NotFoundError
		if !errors.As(err, &nf) {
			t.Errorf("error for %q should be a *NotFoundError", tt.resource)
		}
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationErrorWithValue("code", "must not be empty", "2330")
	want := fmt.Sprintf("validation failed for field 'code': must not be empty (value: %v)", "2330")
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
