package errors

import (
	"fmt"
	"testing"
)

func TestTriageError_Error(t *testing.T) {
	err := &TriageError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "case not found",
	}

	expected := "NOT_FOUND: case not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("text is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "text is required" {
		t.Errorf("Message = %q, want %q", err.Message, "text is required")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("01HZY")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["case_id"] != "01HZY" {
		t.Errorf("Details[case_id] = %v, want %q", err.Details["case_id"], "01HZY")
	}
}

func TestNewKBInvalid(t *testing.T) {
	err := NewKBInvalid("kb.json", []string{"symptoms.0: code is required", "symptoms.1: aliases is required"})

	if err.Status != 422 {
		t.Errorf("Status = %d, want 422", err.Status)
	}
	want := "knowledge base kb.json is invalid: symptoms.0: code is required; symptoms.1: aliases is required"
	if err.Message != want {
		t.Errorf("Message = %q, want %q", err.Message, want)
	}
}

func TestNewStorage_Unwraps(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewStorage("save case", cause)

	if err.Status != 503 {
		t.Errorf("Status = %d, want 503", err.Status)
	}
	if err.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", err.Unwrap(), cause)
	}
}

func TestNewInternal(t *testing.T) {
	err := NewInternal(fmt.Errorf("database connection failed"))

	if err.Code != ErrInternal {
		t.Errorf("Code = %q, want %q", err.Code, ErrInternal)
	}
	if err.Message != "database connection failed" {
		t.Errorf("Message = %q, want %q", err.Message, "database connection failed")
	}

	err = NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewNotFound("x"), ErrNotFound, true},
		{"different code", NewNotFound("x"), ErrInternal, false},
		{"wrapped", fmt.Errorf("listing: %w", NewStorage("list", nil)), ErrStorage, true},
		{"plain error", fmt.Errorf("boom"), ErrInternal, false},
		{"nil", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusOf(t *testing.T) {
	if got := StatusOf(NewInvalidRequest("x")); got != 400 {
		t.Errorf("StatusOf(invalid) = %d, want 400", got)
	}
	if got := StatusOf(fmt.Errorf("plain")); got != 500 {
		t.Errorf("StatusOf(plain) = %d, want 500", got)
	}
}
