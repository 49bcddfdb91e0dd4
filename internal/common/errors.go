package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error codes carried by AppError.
const (
	CodeEngineUnavailable = "ENGINE_UNAVAILABLE"
	CodeInputNotFound     = "INPUT_NOT_FOUND"
	CodeUnsupportedFormat = "UNSUPPORTED_FORMAT"
	CodeEngineFailure     = "ENGINE_FAILURE"
	CodeRuleEvaluation    = "RULE_EVALUATION"
	CodeInvalidInput      = "INVALID_INPUT"
	CodeConfig            = "CONFIG_ERROR"
	CodeStorage           = "STORAGE_ERROR"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is match the sentinel that belongs to the error's code.
func (e *AppError) Is(target error) bool {
	s, ok := sentinels[e.Code]
	return ok && s == target
}

// Common application errors
var (
	ErrNotFound          = errors.New("resource not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInternal          = errors.New("internal error")
	ErrStorage           = errors.New("storage error")
	ErrEngineUnavailable = errors.New("engine unavailable")
	ErrInputNotFound     = errors.New("input not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrEngineFailure     = errors.New("engine failure")
	ErrRuleEvaluation    = errors.New("rule evaluation failed")
)

var sentinels = map[string]error{
	CodeEngineUnavailable: ErrEngineUnavailable,
	CodeInputNotFound:     ErrInputNotFound,
	CodeUnsupportedFormat: ErrUnsupportedFormat,
	CodeEngineFailure:     ErrEngineFailure,
	CodeRuleEvaluation:    ErrRuleEvaluation,
	CodeInvalidInput:      ErrInvalidInput,
	CodeConfig:            ErrInvalidInput,
	CodeStorage:           ErrStorage,
}

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func EngineUnavailable(message string, cause error) *AppError {
	return NewAppError(CodeEngineUnavailable, message, cause)
}

func InputNotFound(path string, cause error) *AppError {
	return NewAppError(CodeInputNotFound, fmt.Sprintf("input document %q not found or unreadable", path), cause)
}

func UnsupportedFormat(ext string) *AppError {
	return NewAppError(CodeUnsupportedFormat, fmt.Sprintf("unsupported document format %q", ext), nil)
}

func EngineFailure(message string, cause error) *AppError {
	return NewAppError(CodeEngineFailure, message, cause)
}

// ErrorCode returns the AppError code found in err's chain, or "".
func ErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// ToGRPCStatus converts an application error into a gRPC status error.
// Errors that already carry a status are returned unchanged.
func ToGRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInputNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupportedFormat):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrEngineUnavailable):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func FailedPreconditionError(message string) error {
	return status.Error(codes.FailedPrecondition, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func NotFoundErrorf(format string, args ...interface{}) error {
	return NotFoundError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...interface{}) error {
	return InternalError(fmt.Sprintf(format, args...))
}
