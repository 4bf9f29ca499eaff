// internal/common/errors/errors_test.go
package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStandardError_ErrorString(t *testing.T) {
	err := NewInputValidationError("message was blank")
	assert.Equal(t, "StandardError[INPUT_VALIDATION_FAILED]: Message is missing or empty", err.Error())
}

func TestConstructors_CodesAndRetryability(t *testing.T) {
	tests := []struct {
		name      string
		err       *StandardError
		code      ErrorCode
		retryable bool
	}{
		{name: "input validation", err: NewInputValidationError("x"), code: ErrCodeInputValidationFailed, retryable: false},
		{name: "missing entity", err: NewMissingEntityError("bug_create", []string{"title"}), code: ErrCodeMissingEntity, retryable: false},
		{name: "missing context", err: NewMissingContextError([]string{"bugId"}), code: ErrCodeMissingContext, retryable: false},
		{name: "collaborator timeout", err: NewCollaboratorError("bugs.list", fmt.Errorf("timeout"), true), code: ErrCodeCollaboratorFailed, retryable: true},
		{name: "collaborator write failure", err: NewCollaboratorError("bugs.create", fmt.Errorf("boom"), false), code: ErrCodeCollaboratorFailed, retryable: false},
		{name: "context store", err: NewContextStoreError(fmt.Errorf("redis down")), code: ErrCodeContextStoreFailed, retryable: true},
		{name: "catalog", err: NewCatalogError("missing responses"), code: ErrCodeCatalogInvalid, retryable: false},
		{name: "panic", err: NewPanicError("nil deref"), code: ErrCodeInterpreterPanic, retryable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.retryable, tt.err.Retryable)
			assert.NotEmpty(t, tt.err.Message)
			assert.False(t, tt.err.Timestamp.IsZero())
		})
	}
}

func TestMissingEntityError_Metadata(t *testing.T) {
	err := NewMissingEntityError("bug_assign", []string{"bugId", "assignedUserId"})
	assert.Equal(t, "bug_assign", err.Metadata["intent"])
	assert.Equal(t, []string{"bugId", "assignedUserId"}, err.Metadata["missing"])
	assert.Contains(t, err.Details, "bug_assign")
}
