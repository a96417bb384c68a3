// Package chaterr defines the error taxonomy shared by the chat core.
// Every I/O failure is converted at its operation boundary into a ChatError
// carrying a Code, so callers can branch on kind without string matching.
package chaterr

import (
	"context"
	"errors"
	"fmt"
)

type Code string

const (
	CodeUnknown    Code = "UNKNOWN"
	CodeFetch      Code = "FETCH"
	CodeUpload     Code = "UPLOAD"
	CodeInsert     Code = "INSERT"
	CodeStorage    Code = "STORAGE"
	CodeTimeout    Code = "TIMEOUT"
	CodeInvalidArg Code = "INVALID_ARGUMENT"
	CodeNotFound   Code = "NOT_FOUND"
	CodeInternal   Code = "INTERNAL"
)

type ChatError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Cause   error  `json:"-"`
}

func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ChatError) Unwrap() error { return e.Cause }

// Constructors
func New(code Code, message string) error {
	return &ChatError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	if cause == nil {
		return New(code, message)
	}
	if isTimeout(cause) {
		code = CodeTimeout
	}
	return &ChatError{Code: code, Message: message, Cause: cause}
}

func InvalidArg(msg string) error {
	return New(CodeInvalidArg, msg)
}

func NotFound(msg string) error {
	return New(CodeNotFound, msg)
}

func Internal(msg string) error {
	return New(CodeInternal, msg)
}

// CodeOf extracts the code from any error in the chain, CodeUnknown when
// the error did not originate here.
func CodeOf(err error) Code {
	var ce *ChatError
	if errors.As(err, &ce) {
		return ce.Code
	}
	if isTimeout(err) {
		return CodeTimeout
	}
	return CodeUnknown
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
