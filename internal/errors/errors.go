package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// ErrorCode represents a triage error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrKBInvalid      ErrorCode = "KB_INVALID"      // 422
	ErrInternal       ErrorCode = "INTERNAL"        // 500
	ErrStorage        ErrorCode = "STORAGE"         // 503
)

// TriageError represents a structured error with code, status, and details.
type TriageError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	cause   error
}

// Error implements the error interface.
func (e *TriageError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *TriageError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *TriageError {
	return &TriageError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a case cannot be found.
func NewNotFound(caseID string) *TriageError {
	return &TriageError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("case not found: %s", caseID),
		Details: map[string]any{"case_id": caseID},
	}
}

// NewKBInvalid creates a 422 error listing knowledge base problems.
func NewKBInvalid(source string, problems []string) *TriageError {
	return &TriageError{
		Code:    ErrKBInvalid,
		Status:  422,
		Message: fmt.Sprintf("knowledge base %s is invalid: %s", source, strings.Join(problems, "; ")),
		Details: map[string]any{"source": source, "problems": problems},
	}
}

// NewStorage creates a 503 error for a failing persistence backend.
func NewStorage(op string, err error) *TriageError {
	msg := op + " failed"
	if err != nil {
		msg = fmt.Sprintf("%s failed: %v", op, err)
	}
	return &TriageError{
		Code:    ErrStorage,
		Status:  503,
		Message: msg,
		Details: map[string]any{"op": op},
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *TriageError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &TriageError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if err (or anything it wraps) is a TriageError with the given code.
func Is(err error, code ErrorCode) bool {
	var tErr *TriageError
	if stderrors.As(err, &tErr) {
		return tErr.Code == code
	}
	return false
}

// StatusOf returns the HTTP status for err, 500 when err is not a TriageError.
func StatusOf(err error) int {
	var tErr *TriageError
	if stderrors.As(err, &tErr) {
		return tErr.Status
	}
	return 500
}
