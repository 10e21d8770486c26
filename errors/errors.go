package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"time"
)

// AppError is the error type surfaced at component boundaries
type AppError struct {
	Raw       error
	HTTPCode  int
	Code      ErrorCode
	Message   string
	Details   map[string]string
	Timestamp time.Time
}

// Error implements error interface
func (e AppError) Error() string {
	if e.Raw != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code.String(), e.Message, e.Raw)
	}
	return fmt.Sprintf("[%s] %s", e.Code.String(), e.Message)
}

// Unwrap exposes the raw cause to errors.Is / errors.As
func (e AppError) Unwrap() error {
	return e.Raw
}

// WithDetail adds a detail to the error
func (e AppError) WithDetail(key, value string) AppError {
	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	e.Details = details
	return e
}

// CodeOf extracts the ErrorCode from err, or ErrorCode_UNKNOWN
func CodeOf(err error) ErrorCode {
	var appErr AppError
	if stdErrors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrorCode_UNKNOWN
}

func newAppError(err error, status int, code ErrorCode, message string) AppError {
	return AppError{
		Raw:       err,
		HTTPCode:  status,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// General Errors
func ErrInternal(err error) AppError {
	return newAppError(err, http.StatusInternalServerError, ErrorCode_INTERNAL, "Internal server error")
}

func ErrInvalidArgument(message string) AppError {
	return newAppError(nil, http.StatusBadRequest, ErrorCode_INVALID_ARGUMENT, message)
}

func ErrNotFound(resource string) AppError {
	return newAppError(nil, http.StatusNotFound, ErrorCode_NOT_FOUND, fmt.Sprintf("%s not found", resource))
}

func ErrUnauthenticated() AppError {
	return newAppError(nil, http.StatusUnauthorized, ErrorCode_UNAUTHENTICATED, "Authentication required")
}

// Recording pipeline errors

// ErrConfiguration is returned when a component is built against an invalid layout.
func ErrConfiguration(message string, err error) AppError {
	return newAppError(err, http.StatusInternalServerError, ErrorCode_CONFIGURATION, message)
}

func ErrEncode(checkpoint string, err error) AppError {
	return newAppError(err, http.StatusInternalServerError, ErrorCode_ENCODE_FAILED, "Failed to encode checkpoint").
		WithDetail("checkpoint", checkpoint)
}

// ErrMerge carries the muxer diagnostics in the "diagnostics" detail.
func ErrMerge(output string, diagnostics string, err error) AppError {
	appErr := newAppError(err, http.StatusInternalServerError, ErrorCode_MERGE_FAILED, "Failed to merge checkpoints").
		WithDetail("output", output)
	if diagnostics != "" {
		appErr = appErr.WithDetail("diagnostics", diagnostics)
	}
	return appErr
}

func ErrMissingCheckpoint(path string, err error) AppError {
	return newAppError(err, http.StatusInternalServerError, ErrorCode_MISSING_CHECKPOINT, "Checkpoint file missing").
		WithDetail("path", path)
}

func ErrNoCheckpoints(err error) AppError {
	return newAppError(err, http.StatusUnprocessableEntity, ErrorCode_NO_CHECKPOINTS, "No audio checkpoints to merge - recording may have failed")
}

func ErrDeviceUnavailable(deviceName, deviceType string, err error) AppError {
	return newAppError(err, http.StatusServiceUnavailable, ErrorCode_DEVICE_UNAVAILABLE, "Device not available").
		WithDetail("device_name", deviceName).
		WithDetail("device_type", deviceType)
}

func ErrIO(operation string, err error) AppError {
	return newAppError(err, http.StatusInternalServerError, ErrorCode_IO_FAILED, fmt.Sprintf("I/O failed: %s", operation))
}

func ErrLockContention(resource string, err error) AppError {
	return newAppError(err, http.StatusConflict, ErrorCode_LOCK_CONTENTION, "Resource is busy").
		WithDetail("resource", resource)
}

func ErrInvalidState(current, operation string, err error) AppError {
	return newAppError(err, http.StatusConflict, ErrorCode_INVALID_STATE, "Operation not allowed in current state").
		WithDetail("state", current).
		WithDetail("operation", operation)
}

func ErrAlreadyRecording(err error) AppError {
	return newAppError(err, http.StatusConflict, ErrorCode_ALREADY_RECORDING, "Recording already in progress")
}

func ErrNoActiveSession(err error) AppError {
	return newAppError(err, http.StatusConflict, ErrorCode_NO_ACTIVE_SESSION, "No active recording session")
}

// Integration Errors
func ErrStorageFailed(operation string, err error) AppError {
	return newAppError(err, http.StatusInternalServerError, ErrorCode_INTEGRATION_STORAGE_FAILED,
		fmt.Sprintf("Storage operation failed: %s", operation))
}

func ErrCacheFailed(operation string, err error) AppError {
	return newAppError(err, http.StatusInternalServerError, ErrorCode_INTEGRATION_CACHE_FAILED,
		fmt.Sprintf("Cache operation failed: %s", operation))
}

func ErrDBQueryFailed(query string, err error) AppError {
	return newAppError(err, http.StatusInternalServerError, ErrorCode_DB_QUERY_FAILED, "Database query failed").
		WithDetail("query", query)
}
