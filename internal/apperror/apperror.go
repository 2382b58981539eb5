package apperror

import (
	"errors"
	"fmt"
)

// Code classifies failures surfaced by the metrics engine.
type Code string

const (
	CodeUnauthorized           Code = "UNAUTHORIZED"
	CodeBadRequest             Code = "BAD_REQUEST"
	CodeBeforeBusinessCreation Code = "BEFORE_BUSINESS_CREATION"
	CodeNotFound               Code = "NOT_FOUND"
	CodeDatabaseError          Code = "DATABASE_ERROR"
	CodeFailedRequest          Code = "FAILED_REQUEST"
)

// Error is a coded failure. Data carries auxiliary payload such as the business
// creation date for CodeBeforeBusinessCreation.
type Error struct {
	Code    Code
	Message string
	Data    any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap builds an Error around cause. A cause that already carries a code keeps it.
func Wrap(code Code, cause error, message string) *Error {
	var existing *Error
	if errors.As(cause, &existing) {
		return existing
	}
	return &Error{Code: code, Message: message, Err: cause}
}

// WithData attaches auxiliary data and returns the same error.
func (e *Error) WithData(data any) *Error {
	e.Data = data
	return e
}

// CodeOf returns the code of the first Error in err's chain, or CodeFailedRequest
// for uncoded errors. A nil error has no code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeFailedRequest
}

// HasCode reports whether err carries code.
func HasCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// DataOf returns the auxiliary data attached to err, if any.
func DataOf(err error) any {
	var e *Error
	if errors.As(err, &e) {
		return e.Data
	}
	return nil
}
