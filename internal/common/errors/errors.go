// Package errors provides the standardized error taxonomy crossing the
// interpreter boundary. Every internal failure is converted into a
// structured envelope before reaching the caller; these codes name the
// failure classes.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Codes
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeInputValidationFailed ErrorCode = "INPUT_VALIDATION_FAILED"
	ErrCodeMissingEntity         ErrorCode = "MISSING_ENTITY"
	ErrCodeMissingContext        ErrorCode = "MISSING_DEPENDENCY_CONTEXT"
	ErrCodeCollaboratorFailed    ErrorCode = "COLLABORATOR_FAILED"
	ErrCodeCollaboratorTimeout   ErrorCode = "COLLABORATOR_TIMEOUT"
	ErrCodeContextStoreFailed    ErrorCode = "CONTEXT_STORE_FAILED"
	ErrCodeCatalogInvalid        ErrorCode = "CATALOG_INVALID"
	ErrCodeInterpreterPanic      ErrorCode = "INTERPRETER_PANIC"
	ErrCodeUnknownIntent         ErrorCode = "UNKNOWN_INTENT"
)

// StandardError is a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewInputValidationError flags an unusable inbound message.
func NewInputValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputValidationFailed,
		Message:   "Message is missing or empty",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingEntityError names the fields a dispatch needed but the
// extraction did not produce.
func NewMissingEntityError(intent string, missing []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingEntity,
		Message:   "Required details are missing from the request",
		Details:   fmt.Sprintf("intent %s needs: %v", intent, missing),
		Retryable: false,
		Metadata:  map[string]interface{}{"intent": intent, "missing": missing},
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingContextError names unresolved back-references.
func NewMissingContextError(dependencies []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeMissingContext,
		Message:   "Earlier conversation context is needed to resolve this request",
		Details:   fmt.Sprintf("missing: %v", dependencies),
		Retryable: false,
		Metadata:  map[string]interface{}{"missingDependencies": dependencies},
		Timestamp: time.Now().UTC(),
	}
}

// NewCollaboratorError wraps a failed collaborator call; retryable only
// for timeouts on idempotent reads.
func NewCollaboratorError(operation string, err error, retryable bool) *StandardError {
	return &StandardError{
		Code:      ErrCodeCollaboratorFailed,
		Message:   "A downstream operation failed",
		Details:   fmt.Sprintf("%s: %v", operation, err),
		Retryable: retryable,
		Metadata:  map[string]interface{}{"operation": operation},
		Timestamp: time.Now().UTC(),
	}
}

// NewContextStoreError wraps a session-store failure.
func NewContextStoreError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeContextStoreFailed,
		Message:   "Conversation state could not be read or written",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCatalogError flags an intent catalog that failed schema validation.
func NewCatalogError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeCatalogInvalid,
		Message:   "Intent catalog failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPanicError is the last-resort conversion of a recovered panic.
func NewPanicError(recovered interface{}) *StandardError {
	return &StandardError{
		Code:      ErrCodeInterpreterPanic,
		Message:   "Something went wrong while processing the message",
		Details:   fmt.Sprintf("%v", recovered),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}
