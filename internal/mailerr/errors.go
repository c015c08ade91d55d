// Package mailerr defines the error taxonomy shared by the send pipeline and
// the HTTP layer. Every error carries a machine-readable Code.
package mailerr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error identifier returned to API callers.
type Code string

const (
	CodeInvalidAddress           Code = "InvalidAddress"
	CodeUnauthorizedSender       Code = "UnauthorizedSender"
	CodeMissingContent           Code = "MissingContent"
	CodeUnknownTemplate          Code = "UnknownTemplate"
	CodeTooManyAttachments       Code = "TooManyAttachments"
	CodeInvalidAttachment        Code = "InvalidAttachment"
	CodeUnsupportedEncoding      Code = "UnsupportedEncoding"
	CodeAttachmentDecodeError    Code = "AttachmentDecodeError"
	CodeAttachmentTooLarge       Code = "AttachmentTooLarge"
	CodeMissingRequiredField     Code = "MissingRequiredField"
	CodeInvalidContentType       Code = "InvalidContentType"
	CodeMalformedRequest         Code = "MalformedRequest"
	CodeUnauthorized             Code = "Unauthorized"
	CodeAuthorizationUnavailable Code = "AuthorizationUnavailable"
	CodeProviderRejected         Code = "ProviderRejected"
	CodeProviderDispatchError    Code = "ProviderDispatchError"
)

// Error is a classified pipeline error.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// New creates an Error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that keeps err as its cause.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Message == "":
		return string(e.Code)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error with the same code, so the
// sentinels below match any error of their class.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Validation reports whether the error was caused by the request itself.
func (e *Error) Validation() bool {
	switch e.Code {
	case CodeUnauthorized, CodeAuthorizationUnavailable, CodeProviderRejected, CodeProviderDispatchError:
		return false
	}
	return true
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

var (
	ErrInvalidAddress           = &Error{Code: CodeInvalidAddress}
	ErrUnauthorizedSender       = &Error{Code: CodeUnauthorizedSender}
	ErrMissingContent           = &Error{Code: CodeMissingContent}
	ErrUnknownTemplate          = &Error{Code: CodeUnknownTemplate}
	ErrTooManyAttachments       = &Error{Code: CodeTooManyAttachments}
	ErrInvalidAttachment        = &Error{Code: CodeInvalidAttachment}
	ErrUnsupportedEncoding      = &Error{Code: CodeUnsupportedEncoding}
	ErrAttachmentDecodeError    = &Error{Code: CodeAttachmentDecodeError}
	ErrAttachmentTooLarge       = &Error{Code: CodeAttachmentTooLarge}
	ErrMissingRequiredField     = &Error{Code: CodeMissingRequiredField}
	ErrInvalidContentType       = &Error{Code: CodeInvalidContentType}
	ErrMalformedRequest         = &Error{Code: CodeMalformedRequest}
	ErrUnauthorized             = &Error{Code: CodeUnauthorized}
	ErrAuthorizationUnavailable = &Error{Code: CodeAuthorizationUnavailable}
	ErrProviderRejected         = &Error{Code: CodeProviderRejected}
	ErrProviderDispatchError    = &Error{Code: CodeProviderDispatchError}
)
