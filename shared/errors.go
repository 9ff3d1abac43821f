package shared

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	ErrTypeValidation   = "VALIDATION"
	ErrTypeNotFound     = "NOT_FOUND"
	ErrTypeConflict     = "CONFLICT"
	ErrTypeUnauthorized = "UNAUTHORIZED"
	ErrTypeForbidden    = "FORBIDDEN"
	ErrTypeDependency   = "DEPENDENCY"
	ErrTypeRateLimited  = "RATE_LIMITED"
	ErrTypeInternal     = "INTERNAL"
)

// AppError is the error shape every layer returns to the HTTP boundary.
type AppError struct {
	StatusCode int
	Type       string
	Message    string
	Data       interface{}
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WithData attaches a payload that is rendered in the response body.
func (e *AppError) WithData(data interface{}) *AppError {
	e.Data = data
	return e
}

func newAppError(statusCode int, errType string, err error, message string) *AppError {
	return &AppError{
		StatusCode: statusCode,
		Type:       errType,
		Message:    message,
		Err:        err,
	}
}

func NewBadRequestError(err error, message string) *AppError {
	return newAppError(http.StatusBadRequest, ErrTypeValidation, err, message)
}

// NewValidationError reports a single violated rule on a named field.
func NewValidationError(field, message string) *AppError {
	return newAppError(http.StatusBadRequest, ErrTypeValidation, nil, message).
		WithData(map[string]string{"field": field, "reason": message})
}

func NewNotFoundError(err error, message string) *AppError {
	return newAppError(http.StatusNotFound, ErrTypeNotFound, err, message)
}

func NewConflictError(err error, message string) *AppError {
	return newAppError(http.StatusConflict, ErrTypeConflict, err, message)
}

func NewUnauthorizedError(err error, message string) *AppError {
	return newAppError(http.StatusUnauthorized, ErrTypeUnauthorized, err, message)
}

func NewForbiddenError(err error, message string) *AppError {
	return newAppError(http.StatusForbidden, ErrTypeForbidden, err, message)
}

func NewDependencyError(err error, message string) *AppError {
	return newAppError(http.StatusBadGateway, ErrTypeDependency, err, message)
}

func NewTooManyRequestsError(err error, message string) *AppError {
	return newAppError(http.StatusTooManyRequests, ErrTypeRateLimited, err, message)
}

func NewInternalError(err error, message string) *AppError {
	return newAppError(http.StatusInternalServerError, ErrTypeInternal, err, message)
}

func GetAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsErrorType reports whether err carries an AppError of the given type.
func IsErrorType(err error, errType string) bool {
	appErr, ok := GetAppError(err)
	return ok && appErr.Type == errType
}
