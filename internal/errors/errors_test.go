package errors

import (
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	plain := New(NotFound, "path does not exist: /tmp/x")
	assert.Equal(t, "[NOT_FOUND] path does not exist: /tmp/x", plain.Error())

	wrapped := Wrap(OperationFailed, "read failed", fs.ErrPermission)
	assert.Equal(t, "[OPERATION_FAILED] read failed: permission denied", wrapped.Error())
	assert.ErrorIs(t, wrapped, fs.ErrPermission)
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, InvalidGlob, CodeOf(New(InvalidGlob, "bad pattern")))
	assert.Equal(t, OperationFailed, CodeOf(fmt.Errorf("plain")))

	// Wrapped ServiceErrors are still recognized through error chains.
	outer := fmt.Errorf("context: %w", NewNotFoundError("/tmp/gone"))
	assert.True(t, IsCode(outer, NotFound))
	assert.False(t, IsCode(outer, PermissionDenied))
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, OutsideAllowedRoots, NewOutsideRootsError("/etc/passwd").Code)
	assert.Equal(t, NoWriteAccess, NewNoWriteAccessError().Code)
	assert.Contains(t, NewInvalidParameterError("path", "").Error(), `"path"`)
	assert.Contains(t, NewInvalidParameterError("max_depth", "must be positive").Error(), "must be positive")

	op := NewOperationError("duplicate scan", fmt.Errorf("boom"))
	assert.Equal(t, "[OPERATION_FAILED] duplicate scan failed: boom", op.Error())
}
