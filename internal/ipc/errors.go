package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/lingua/internal/database/crud"
)

// Code classifies an IPC failure for the renderer.
type Code string

const (
	CodeNotFound        Code = "NOT_FOUND"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeConflict        Code = "CONFLICT"
	CodeTimeout         Code = "TIMEOUT"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeUnknownMethod   Code = "UNKNOWN_METHOD"
	CodeInternal        Code = "INTERNAL"
)

// codeOK labels successful calls in metrics and logs only.
const codeOK = "OK"

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnavailable     = errors.New("service unavailable")
	ErrUnknownMethod   = errors.New("unknown method")
)

// Envelope is what the renderer receives instead of a result when a call fails.
type Envelope struct {
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Method    string `json:"method"`
	Timestamp int64  `json:"timestamp"` // Unix milliseconds
}

func (e *Envelope) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Method, e.Message, e.Code)
}

// Error lets a handler choose the code and the message shown to the user.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf returns an *Error with code and a formatted message.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewEnvelope converts err into an envelope for method. Messages of
// internal errors are replaced so that details stay in the logs.
func NewEnvelope(method string, err error, now time.Time) *Envelope {
	code, message := classify(err)
	return &Envelope{
		Code:      code,
		Message:   message,
		Method:    method,
		Timestamp: now.UnixMilli(),
	}
}

// CodeOf returns the code err would be reported with.
func CodeOf(err error) Code {
	code, _ := classify(err)
	return code
}

func classify(err error) (Code, string) {
	var ipcErr *Error
	var envelope *Envelope
	var validationErrs validator.ValidationErrors
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &envelope):
		return envelope.Code, envelope.Message
	case errors.As(err, &ipcErr):
		return ipcErr.Code, ipcErr.Message
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout, "request timed out"
	case errors.Is(err, context.Canceled):
		return CodeTimeout, "request cancelled"
	case errors.As(err, &validationErrs):
		return CodeInvalidArgument, describeValidation(validationErrs)
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return CodeInvalidArgument, "malformed arguments: " + err.Error()
	case errors.Is(err, crud.ErrNotFound):
		return CodeNotFound, err.Error()
	case errors.Is(err, crud.ErrConflict):
		return CodeConflict, "record already exists"
	case errors.Is(err, crud.ErrInvalidField), errors.Is(err, ErrInvalidArgument):
		return CodeInvalidArgument, err.Error()
	case errors.Is(err, ErrUnknownMethod):
		return CodeUnknownMethod, err.Error()
	case errors.Is(err, ErrUnavailable):
		return CodeUnavailable, err.Error()
	default:
		return CodeInternal, "internal error"
	}
}

func describeValidation(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "invalid arguments"
	}
	first := errs[0]
	msg := fmt.Sprintf("%s failed on %s", first.Namespace(), first.Tag())
	if first.Param() != "" {
		msg += "=" + first.Param()
	}
	if len(errs) > 1 {
		msg += fmt.Sprintf(" (and %d more)", len(errs)-1)
	}
	return msg
}
