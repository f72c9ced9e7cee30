package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	New = errors.New
	Is  = errors.Is
	As  = errors.As
)

const (
	CodeNotFound          = "NOT_FOUND"
	CodeDecode            = "DECODE"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeRender            = "RENDER"
	CodeStorage           = "STORAGE"
	CodeInvalidArgument   = "INVALID_ARGUMENT"
)

// AppError carries a stable code alongside a human message and the wrapped cause.
type AppError struct {
	code    string
	message string
	err     error
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s", e.message, e.err.Error())
	}
	return e.message
}

func (e *AppError) Code() string    { return e.code }
func (e *AppError) Message() string { return e.message }
func (e *AppError) Unwrap() error   { return e.err }

func newError(code, message string, err error) *AppError {
	return &AppError{code: code, message: message, err: err}
}

func NotFound(format string, args ...any) error {
	return newError(CodeNotFound, fmt.Sprintf(format, args...), nil)
}

func Decode(err error) error {
	return newError(CodeDecode, "failed to decode image", err)
}

func UnsupportedFormat(ext string) error {
	return newError(CodeUnsupportedFormat, fmt.Sprintf("unsupported file format %q", ext), nil)
}

func Render(err error) error {
	return newError(CodeRender, "failed to render PDF", err)
}

// Storage wraps filesystem and database failures. A nil err yields nil.
func Storage(message string, err error) error {
	if err == nil {
		return nil
	}
	return newError(CodeStorage, message, err)
}

func Invalid(format string, args ...any) error {
	return newError(CodeInvalidArgument, fmt.Sprintf(format, args...), nil)
}

// CodeOf returns the code of the first AppError in err's chain, or "" if none.
func CodeOf(err error) string {
	var appErr *AppError
	if As(err, &appErr) {
		return appErr.code
	}
	return ""
}

func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// HTTPStatus maps an error to the status code the HTTP surface responds with.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeDecode, CodeUnsupportedFormat, CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
