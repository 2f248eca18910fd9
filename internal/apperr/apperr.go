package apperr

import (
	"errors"
	"fmt"
)

// Code is the wire status code carried in every response envelope. The
// facade mirrors it to an HTTP status; core components only deal in
// *Error values.
type Code string

const (
	CodeOK               Code = "OK"
	CodeNotFound         Code = "NOT_FOUND"
	CodeAlreadyExists    Code = "ALREADY_EXISTS"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeUnauthenticated  Code = "UNAUTHENTICATED"
	CodeInternal         Code = "INTERNAL"
	CodeUnavailable      Code = "UNAVAILABLE"
)

// Error is a typed outcome returned by the registries, the liveness
// tracker and the checkpoint manager. Integrity failures carry
// CodeInternal on the wire but stay distinguishable via IsIntegrity.
type Error struct {
	Code      Code
	Message   string
	Integrity bool // checksum mismatch on read, possible corruption
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports an absent entity.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// AlreadyExists reports a duplicate registration.
func AlreadyExists(format string, args ...interface{}) *Error {
	return &Error{Code: CodeAlreadyExists, Message: fmt.Sprintf(format, args...)}
}

// InvalidArgument reports a malformed request.
func InvalidArgument(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

// StorageFailure reports a blob store or index I/O error.
func StorageFailure(msg string, err error) *Error {
	return &Error{Code: CodeInternal, Message: msg, Err: err}
}

// IntegrityFailure reports a checksum mismatch on read.
func IntegrityFailure(format string, args ...interface{}) *Error {
	return &Error{Code: CodeInternal, Integrity: true, Message: fmt.Sprintf(format, args...)}
}

// Unavailable reports a transient condition the client should retry.
func Unavailable(msg string, err error) *Error {
	return &Error{Code: CodeUnavailable, Message: msg, Err: err}
}

// Internal reports an unclassified server-side failure.
func Internal(msg string, err error) *Error {
	return &Error{Code: CodeInternal, Message: msg, Err: err}
}

// CodeOf extracts the status code from any error; plain errors map to
// INTERNAL.
func CodeOf(err error) Code {
	if err == nil {
		return CodeOK
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// IsNotFound reports whether err carries NOT_FOUND.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsAlreadyExists reports whether err carries ALREADY_EXISTS.
func IsAlreadyExists(err error) bool {
	return CodeOf(err) == CodeAlreadyExists
}

// IsIntegrity reports whether err is a checksum-mismatch failure.
func IsIntegrity(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Integrity
}
