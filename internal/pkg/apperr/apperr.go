package apperr

import (
	"errors"
	"fmt"
)

// Code 标识一类业务或基础设施错误，HTTP 层和客户端都按它来分流。
type Code string

const (
	CodeValidation            Code = "VALIDATION_ERROR"
	CodeNotFound              Code = "NOT_FOUND"
	CodeInvalidUser           Code = "INVALID_USER"
	CodeInsufficientInventory Code = "SOLD_OUT"
	CodeLockTimeout           Code = "LOCK_TIMEOUT"
	CodeDownstreamUnavailable Code = "DOWNSTREAM_UNAVAILABLE"
	CodePaymentDeclined       Code = "PAYMENT_DECLINED"
	CodeDuplicateMessage      Code = "DUPLICATE_MESSAGE"
	CodeInternal              Code = "INTERNAL"
)

// Error 携带错误码的业务错误，支持 errors.Is/As 匹配。
type Error struct {
	Code    Code
	Message string
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap 在保留底层错误的同时打上错误码。
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is 让 errors.Is 只比较错误码。
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// CodeOf 提取错误码，无法识别的错误归为 INTERNAL。
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Retryable 报告该错误是否值得调用方重试。
func Retryable(err error) bool {
	switch CodeOf(err) {
	case CodeLockTimeout, CodeDownstreamUnavailable:
		return true
	}
	return false
}
