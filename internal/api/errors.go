package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"PredictiBoot/internal/analyst"
	"PredictiBoot/internal/collector"
	"PredictiBoot/internal/forecast"
	"PredictiBoot/internal/service"
)

// AppError represents application-level error with HTTP status.
type AppError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Field   string                 `json:"field,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
	Status  int                    `json:"-"`
	Err     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code, field, message string, status int) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Field:   field,
		Status:  status,
		Params:  make(map[string]interface{}),
	}
}

// WithParam sets a single error param.
func (e *AppError) WithParam(key string, value interface{}) *AppError {
	if e.Params == nil {
		e.Params = make(map[string]interface{})
	}
	e.Params[key] = value
	return e
}

// WithError wraps an underlying error.
func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// NotFoundError creates a 404 error.
func NotFoundError(message string) *AppError {
	return NewAppError("ERR_NOT_FOUND", "", message, http.StatusNotFound)
}

// RateLimitedError creates a 429 error.
func RateLimitedError(message string) *AppError {
	return NewAppError("ERR_RATE_LIMITED", "", message, http.StatusTooManyRequests)
}

// InternalError creates a 500 error.
func InternalError(message string) *AppError {
	return NewAppError("ERR_INTERNAL", "", message, http.StatusInternalServerError)
}

// ToAppError maps service and forecasting failures onto HTTP errors.
func ToAppError(err error) *AppError {
	var (
		appErr       *AppError
		insufficient forecast.InsufficientHistoryError
		quality      forecast.DataQualityError
		computation  forecast.ComputationError
		noHistory    collector.ErrNoHistory
		upstream     analyst.APIError
	)
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &insufficient):
		return NewAppError("ERR_INSUFFICIENT_HISTORY", "years", insufficient.Error(), http.StatusBadRequest).
			WithParam("need", insufficient.Need).
			WithParam("have", insufficient.Have).
			WithError(err)
	case errors.As(err, &quality):
		return NewAppError("ERR_DATA_QUALITY", "", quality.Error(), http.StatusUnprocessableEntity).WithError(err)
	case errors.As(err, &computation):
		return NewAppError("ERR_COMPUTATION", "", "forecast computation failed", http.StatusInternalServerError).
			WithParam("stage", computation.Stage).
			WithError(err)
	case errors.As(err, &noHistory):
		return NotFoundError(noHistory.Error()).WithError(err)
	case errors.Is(err, analyst.ErrMissingAPIKey), errors.Is(err, service.ErrUnavailable):
		return NewAppError("ERR_UNAVAILABLE", "", err.Error(), http.StatusServiceUnavailable).WithError(err)
	case errors.As(err, &upstream):
		return NewAppError("ERR_UPSTREAM", "", "analysis provider failed", http.StatusBadGateway).
			WithParam("upstream_status", upstream.Status).
			WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewAppError("ERR_TIMEOUT", "", "request timed out", http.StatusGatewayTimeout).WithError(err)
	default:
		return InternalError("Something went wrong").WithError(err)
	}
}
