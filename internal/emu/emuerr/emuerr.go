// Package emuerr provides the error taxonomy used across the emulator
// core. Every error surfaced to a collaborator maps to exactly one
// types.ResponseCode; a wrapped cause is preserved for logs.
package emuerr

import (
	"fmt"

	"github.com/arcsign/hsmemu/internal/emu/types"
)

// Error is a response-code-classified error.
type Error struct {
	Code    types.ResponseCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(code types.ResponseCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func InvalidMsg(message string) *Error              { return newErr(types.RespInvalidMsg, message, nil) }
func InvalidMsgf(format string, a ...any) *Error     { return newErr(types.RespInvalidMsg, fmt.Sprintf(format, a...), nil) }
func PairFailed(message string) *Error               { return newErr(types.RespPairFailed, message, nil) }
func DeviceLocked(message string) *Error             { return newErr(types.RespDeviceLocked, message, nil) }
func UnsupportedVersion(message string) *Error       { return newErr(types.RespUnsupportedVersion, message, nil) }
func Already(message string) *Error                  { return newErr(types.RespAlready, message, nil) }
func UserDeclined(message string) *Error             { return newErr(types.RespUserDeclined, message, nil) }
func Internal(message string, cause error) *Error    { return newErr(types.RespInternalError, message, cause) }

// Code extracts the response code for any error, defaulting to
// InternalError for errors not produced by this package.
func Code(err error) types.ResponseCode {
	if err == nil {
		return types.RespSuccess
	}
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return types.RespInternalError
}
