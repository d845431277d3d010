// Package errors defines the stable error taxonomy shared by every fskit
// tool: access failures, pattern compilation failures, parse failures, and
// resource limits. Tool responses carry these codes so clients can react
// programmatically instead of parsing prose.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes.
type ErrorCode string

const (
	// OutsideAllowedRoots indicates a path resolved outside every allowed root.
	OutsideAllowedRoots ErrorCode = "OUTSIDE_ALLOWED_ROOTS"
	// NotFound indicates the target of a read does not exist.
	NotFound ErrorCode = "NOT_FOUND"
	// PermissionDenied indicates the OS refused access to the target.
	PermissionDenied ErrorCode = "PERMISSION_DENIED"
	// NoWriteAccess indicates a mutating mode was requested on a read-only server.
	NoWriteAccess ErrorCode = "NO_WRITE_ACCESS"
	// InvalidGlob indicates a glob pattern failed to compile.
	InvalidGlob ErrorCode = "INVALID_GLOB"
	// InvalidRegex indicates a regex query failed to compile.
	InvalidRegex ErrorCode = "INVALID_REGEX"
	// UnsupportedBraceNesting indicates a glob used nested brace alternates.
	UnsupportedBraceNesting ErrorCode = "UNSUPPORTED_BRACE_NESTING"
	// UnsupportedLanguage indicates an unknown language identifier.
	UnsupportedLanguage ErrorCode = "UNSUPPORTED_LANGUAGE"
	// MalformedSource indicates a pattern snippet could not be parsed.
	MalformedSource ErrorCode = "MALFORMED_SOURCE"
	// FileTooLarge indicates a file exceeded a size limit.
	FileTooLarge ErrorCode = "FILE_TOO_LARGE"
	// InvalidParameter indicates a malformed tool parameter.
	InvalidParameter ErrorCode = "INVALID_PARAMETER"
	// OperationFailed indicates an unexpected runtime failure.
	OperationFailed ErrorCode = "OPERATION_FAILED"
)

// ServiceError is a coded error with an optional underlying cause.
type ServiceError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	cause   error
}

// New creates a ServiceError without a cause.
func New(code ErrorCode, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}

// Wrap creates a ServiceError with an underlying cause.
func Wrap(code ErrorCode, message string, cause error) *ServiceError {
	return &ServiceError{Code: code, Message: message, cause: cause}
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.cause
}

// CodeOf extracts the error code from err, or OperationFailed when err is
// not a ServiceError.
func CodeOf(err error) ErrorCode {
	var se *ServiceError
	if stderrors.As(err, &se) {
		return se.Code
	}
	return OperationFailed
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// NewOutsideRootsError reports a path outside every allowed root.
func NewOutsideRootsError(path string) *ServiceError {
	return New(OutsideAllowedRoots, fmt.Sprintf("access denied: %s is outside allowed directories", path))
}

// NewNotFoundError reports a missing read target.
func NewNotFoundError(path string) *ServiceError {
	return New(NotFound, fmt.Sprintf("path does not exist: %s", path))
}

// NewPermissionDeniedError reports an OS-level access refusal.
func NewPermissionDeniedError(path string, cause error) *ServiceError {
	return Wrap(PermissionDenied, fmt.Sprintf("permission denied: %s", path), cause)
}

// NewNoWriteAccessError reports a write attempt on a read-only server.
func NewNoWriteAccessError() *ServiceError {
	return New(NoWriteAccess, "server is running in read-only mode; restart with --allow-write to enable writes")
}

// NewInvalidParameterError reports a malformed tool parameter.
func NewInvalidParameterError(name, detail string) *ServiceError {
	if detail == "" {
		return New(InvalidParameter, fmt.Sprintf("missing or invalid parameter %q", name))
	}
	return New(InvalidParameter, fmt.Sprintf("invalid parameter %q: %s", name, detail))
}

// NewOperationError wraps an unexpected failure of a named operation.
func NewOperationError(operation string, cause error) *ServiceError {
	return Wrap(OperationFailed, operation+" failed", cause)
}
