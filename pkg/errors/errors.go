// Package errors provides the error types shared by the evaluator, the
// service layer and the HTTP API.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes.
const (
	CodeConfiguration = "CONFIGURATION_ERROR"
	CodeValidation    = "VALIDATION_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeParse         = "PARSE_ERROR"
	CodeRateLimited   = "RATE_LIMITED"

	CodeExecution   = "EXECUTION_ERROR"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
	CodeInternal    = "INTERNAL_ERROR"
)

// Parse failure reasons, stored under the "reason" detail.
const (
	ReasonNotFound        = "not_found"
	ReasonNotNumeric      = "not_numeric"
	ReasonDuplicateRow    = "duplicate_row"
	ReasonInvalidInterval = "invalid_interval"
)

// AppError represents an application error with code and details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code for this error.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeConfiguration, CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeParse:
		return http.StatusUnprocessableEntity
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeExecution:
		return http.StatusBadGateway
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Convenience constructors.

// ConfigurationError reports scoring options the evaluator cannot accept.
func ConfigurationError(format string, args ...any) *AppError {
	return New(CodeConfiguration, fmt.Sprintf(format, args...))
}

// ValidationError creates a request validation error.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// NotFoundError creates a not found error.
func NotFoundError(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// ExecutionError reports a failed or missing ROUGE process. stderr is kept
// as a detail when non-empty.
func ExecutionError(message, stderr string, err error) *AppError {
	e := Wrap(CodeExecution, message, err)
	if stderr != "" {
		e = e.WithDetail("stderr", stderr)
	}
	return e
}

// ParseError reports a report that does not contain what was asked for.
func ParseError(reason, message string, err error) *AppError {
	return Wrap(CodeParse, message, err).WithDetail("reason", reason)
}

// RateLimitError rejects a client that exceeded its request budget.
func RateLimitError() *AppError {
	return New(CodeRateLimited, "rate limit exceeded, please try again later")
}

// InternalError creates an internal error.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// ServiceUnavailableError creates a service unavailable error.
func ServiceUnavailableError(service string, err error) *AppError {
	message := "service unavailable"
	if service != "" {
		message = fmt.Sprintf("%s is unavailable", service)
	}
	return Wrap(CodeUnavailable, message, err)
}

// As returns the first AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func hasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// IsConfiguration checks if err is a configuration error.
func IsConfiguration(err error) bool {
	return hasCode(err, CodeConfiguration)
}

// IsExecution checks if err is an execution error.
func IsExecution(err error) bool {
	return hasCode(err, CodeExecution)
}

// IsParse checks if err is a parse error of any reason.
func IsParse(err error) bool {
	return hasCode(err, CodeParse)
}

// IsNotFound checks if err is a not found error.
func IsNotFound(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsValidation checks if err is a validation error.
func IsValidation(err error) bool {
	return hasCode(err, CodeValidation)
}

// Reason returns the parse failure reason carried by err, if any.
func Reason(err error) string {
	appErr, ok := As(err)
	if !ok {
		return ""
	}
	return appErr.Details["reason"]
}

// HTTPStatus maps any error to a response status.
func HTTPStatus(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}
