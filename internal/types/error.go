package types

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	InternalServiceError ErrorCode = "INTERNAL_SERVICE_ERROR"
	ValidationError      ErrorCode = "VALIDATION_ERROR"
	NotFound             ErrorCode = "NOT_FOUND"
	BadRequest           ErrorCode = "BAD_REQUEST"
	Forbidden            ErrorCode = "FORBIDDEN"
	RequestTimeout       ErrorCode = "REQUEST_TIMEOUT"
	ClientRequestError   ErrorCode = "CLIENT_REQUEST_ERROR"

	// ledger conditions, surfaced to callers under their own names
	ZeroValue      ErrorCode = "ZERO_VALUE"
	ZeroAddress    ErrorCode = "ZERO_ADDRESS"
	FeeTooHigh     ErrorCode = "FEE_TOO_HIGH"
	NotOwner       ErrorCode = "NOT_OWNER"
	TransferFailed ErrorCode = "TRANSFER_FAILED"
	Overflow       ErrorCode = "OVERFLOW"
)

func (e ErrorCode) String() string {
	return string(e)
}

// Error is the error type passed between service, client and api layers.
// It carries the http status to answer with and a stable code for callers.
type Error struct {
	StatusCode int
	ErrorCode  ErrorCode
	Err        error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(statusCode int, errorCode ErrorCode, err error) *Error {
	return &Error{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Err:        err,
	}
}

func NewErrorWithMsg(statusCode int, errorCode ErrorCode, msg string) *Error {
	return &Error{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Err:        errors.New(msg),
	}
}

func NewInternalServiceError(err error) *Error {
	return &Error{
		StatusCode: http.StatusInternalServerError,
		ErrorCode:  InternalServiceError,
		Err:        err,
	}
}

func NewValidationFailedError(err error) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		ErrorCode:  ValidationError,
		Err:        err,
	}
}

func NewBadRequestError(format string, args ...any) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		ErrorCode:  BadRequest,
		Err:        fmt.Errorf(format, args...),
	}
}
