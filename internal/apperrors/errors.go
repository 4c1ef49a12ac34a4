package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	CodeValidation   = "VALIDATION_ERROR"
	CodeProvisioning = "PROVISIONING_ERROR"
	CodeDelivery     = "DELIVERY_ERROR"
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeUnavailable  = "NOT_CONFIGURED"
	CodeRateLimited  = "RATE_LIMITED"
	CodeUnexpected   = "UNEXPECTED_ERROR"
)

// GenericMessage is what clients see for anything that is not their fault.
const GenericMessage = "Failed to create booking. Please try again or contact support."

type AppError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Err        error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// Validation is the only failure that reaches a booking caller as a definite failure.
func Validation(message string, details map[string]any) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// Provisioning marks a failed meeting or calendar write. It is logged and swallowed.
func Provisioning(resource string, err error) *AppError {
	return &AppError{
		Code:       CodeProvisioning,
		Message:    fmt.Sprintf("%s provisioning failed", resource),
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// Delivery marks a single reminder that could not be handed to the mail provider.
func Delivery(kind string, err error) *AppError {
	return &AppError{
		Code:       CodeDelivery,
		Message:    fmt.Sprintf("reminder %s not scheduled", kind),
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
	}
}

func RateLimited() *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    "Too many requests. Please try again later.",
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// Unavailable marks a feature whose integration is not configured.
func Unavailable(feature string) *AppError {
	return &AppError{
		Code:       CodeUnavailable,
		Message:    fmt.Sprintf("%s not configured", feature),
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// Internal hides err behind message.
func Internal(message string, err error) *AppError {
	return &AppError{
		Code:       CodeUnexpected,
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func Unexpected(err error) *AppError {
	return Internal(GenericMessage, err)
}

// As returns err as an *AppError, wrapping anything unknown as Unexpected.
func As(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Unexpected(err)
}

func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == CodeValidation
}
