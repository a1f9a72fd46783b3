package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationResult_EmptyIsValid(t *testing.T) {
	r := &ValidationResult{}
	assert.True(t, r.Valid())
}

func TestValidationResult_AddError(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("processes[0].detail.xpdlId", ErrCodeIDExists, "process id already exists")

	assert.False(t, r.Valid())
	require.Len(t, r.Errors, 1)
	assert.Equal(t, "processes[0].detail.xpdlId", r.Errors[0].Path)
	assert.Equal(t, ErrCodeIDExists, r.Errors[0].Code)
	assert.Equal(t, "process id already exists", r.Errors[0].Message)
	assert.Equal(t, SeverityError, r.Errors[0].Severity)
}

func TestValidationResult_AddWarning(t *testing.T) {
	r := &ValidationResult{}
	r.AddWarning("processes[0].nodes[3]", ErrCodeValidation, "activity has no actor")

	assert.True(t, r.Valid(), "warnings alone should not make result invalid")
	require.Len(t, r.Warnings, 1)
	assert.Equal(t, SeverityWarning, r.Warnings[0].Severity)
}

func TestValidationResult_Merge(t *testing.T) {
	r1 := &ValidationResult{}
	r1.AddError("/", ErrCodeValidation, "err1")
	r1.AddWarning("/", ErrCodeValidation, "warn1")

	r2 := &ValidationResult{}
	r2.AddError("processes[0].edges[2]", ErrCodeImport, "err2")
	r2.AddWarning("processes[0].nodes[4]", ErrCodeValidation, "warn2")

	r1.Merge(r2)

	assert.Len(t, r1.Errors, 2)
	assert.Len(t, r1.Warnings, 2)
}

func TestValidationResult_MergeNil(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("/", ErrCodeValidation, "err")
	r.Merge(nil)
	assert.Len(t, r.Errors, 1)
}

func TestValidationResult_ToError_Valid(t *testing.T) {
	r := &ValidationResult{}
	r.AddWarning("/", ErrCodeValidation, "just a warning")
	assert.Nil(t, r.ToError())
}

func TestValidationResult_ToError_SingleError(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("processes[0].detail.xpdlId", ErrCodeIDExists, "process id already exists")

	err := r.ToError()
	require.NotNil(t, err)

	flowErr, ok := err.(*FlowError)
	require.True(t, ok)
	assert.Equal(t, ErrCodeValidation, flowErr.Code)
	assert.Equal(t, "process id already exists", flowErr.Message)
	assert.Equal(t, 1, flowErr.Details["error_count"])
}

func TestValidationResult_ToError_MultipleErrors(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("/", ErrCodeValidation, "err1")
	r.AddError("/", ErrCodeValidation, "err2")
	r.AddWarning("/", ErrCodeValidation, "warn1")

	err := r.ToError()
	require.NotNil(t, err)

	flowErr, ok := err.(*FlowError)
	require.True(t, ok)
	assert.Contains(t, flowErr.Message, "2 errors")
	assert.Equal(t, 2, flowErr.Details["error_count"])
	assert.Equal(t, 1, flowErr.Details["warning_count"])
}

func TestValidationResult_ToErrorCode(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("processes[0].edges[1].to", ErrCodeImport, "edge references unknown node 9")

	err := r.ToErrorCode(ErrCodeImport)
	require.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeImport))
}

func TestFlowError_Format(t *testing.T) {
	err := NewErrorf(ErrCodeIDExists, "external id %q already used", "wp1").WithProcess(2)
	assert.Equal(t, `[ID_EXISTS] process 2: external id "wp1" already used`, err.Error())

	plain := NewError(ErrCodeLastProcess, "cannot remove the last process")
	assert.Equal(t, "[LAST_PROCESS] cannot remove the last process", plain.Error())
}

func TestErrorCode_Unwraps(t *testing.T) {
	cause := errors.New("disk full")
	inner := NewError(ErrCodeStore, "save failed").WithCause(cause)
	wrapped := fmt.Errorf("save document: %w", inner)

	assert.Equal(t, ErrCodeStore, ErrorCode(wrapped))
	assert.True(t, errors.Is(wrapped, cause))
	assert.Equal(t, "", ErrorCode(cause))
}
