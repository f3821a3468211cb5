package models

import (
	"fmt"
	"strings"
)

// AppError is the error type returned across the store boundary. Code is a
// stable machine-readable discriminator; Message is human-readable.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Predefined error constructors
func NewNotFoundError(resource string, id interface{}) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with ID %v not found", resource, id),
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{
		Code:    "VALIDATION_ERROR",
		Message: message,
	}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
	}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
	}
}

func NewConflictError(message string) *AppError {
	return &AppError{
		Code:    "CONFLICT",
		Message: message,
	}
}

func NewInternalError(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "Internal store error",
		Err:     err,
	}
}

// MemberFailure is one invalid group-member candidate and the reason it was
// refused.
type MemberFailure struct {
	Name   string
	Reason string
}

// MemberValidationError aggregates every invalid candidate from a group
// create or add operation. Candidates are validated exhaustively so the
// caller can report all bad names at once instead of one per attempt.
type MemberValidationError struct {
	Failures []MemberFailure
}

func (e *MemberValidationError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Name, f.Reason))
	}
	return "invalid members: " + strings.Join(parts, "; ")
}
