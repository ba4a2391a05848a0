package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

/**
 * Custom error types for the dictation OCR service
 *
 * Only input errors and extraction exhaustion ever reach a caller.
 * Refinement and lexicon failures are recovered inside the pipeline and
 * carry their codes only into logs and metrics.
 */

// ErrorCode enum for structured error handling
type ErrorCode string

const (
	// Input errors
	ErrorInvalidImage   ErrorCode = "INVALID_IMAGE"
	ErrorInvalidRequest ErrorCode = "INVALID_REQUEST"

	// Extraction errors
	ErrorOCRUnavailable      ErrorCode = "OCR_UNAVAILABLE"
	ErrorExtractionExhausted ErrorCode = "EXTRACTION_EXHAUSTED"
	ErrorProcessingTimeout   ErrorCode = "PROCESSING_TIMEOUT"

	// Recovered locally
	ErrorRefinementFailed   ErrorCode = "REFINEMENT_FAILED"
	ErrorLexiconUnavailable ErrorCode = "LEXICON_UNAVAILABLE"

	// Infrastructure errors
	ErrorStorageFailed ErrorCode = "STORAGE_FAILED"
	ErrorQueueFailed   ErrorCode = "QUEUE_FAILED"
	ErrorJobNotFound   ErrorCode = "JOB_NOT_FOUND"
	ErrorJobExists     ErrorCode = "JOB_EXISTS"
)

// AnalysisError represents a structured pipeline error
type AnalysisError struct {
	Code      ErrorCode
	Message   string
	RequestID string
	Timestamp time.Time
	Details   map[string]interface{}
	Cause     error
}

func (e *AnalysisError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

// HTTPStatus maps the error code to the status an HTTP caller should see.
func (e *AnalysisError) HTTPStatus() int {
	switch e.Code {
	case ErrorInvalidImage, ErrorInvalidRequest:
		return http.StatusBadRequest
	case ErrorOCRUnavailable:
		return http.StatusNotImplemented
	case ErrorProcessingTimeout:
		return http.StatusGatewayTimeout
	case ErrorQueueFailed:
		return http.StatusServiceUnavailable
	case ErrorJobNotFound:
		return http.StatusNotFound
	case ErrorJobExists:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether repeating the same request may succeed.
// Extraction is stateless, so exhaustion and timeouts are safe to retry.
func (e *AnalysisError) Retryable() bool {
	switch e.Code {
	case ErrorExtractionExhausted, ErrorProcessingTimeout, ErrorStorageFailed, ErrorQueueFailed:
		return true
	default:
		return false
	}
}

// Factory functions for common errors

func NewInvalidImageError(requestID string, cause error) *AnalysisError {
	return &AnalysisError{
		Code:      ErrorInvalidImage,
		Message:   "Invalid image file",
		RequestID: requestID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewInvalidRequestError(requestID string, message string) *AnalysisError {
	return &AnalysisError{
		Code:      ErrorInvalidRequest,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now(),
	}
}

func NewOCRUnavailableError(requestID string) *AnalysisError {
	return &AnalysisError{
		Code:      ErrorOCRUnavailable,
		Message:   "No OCR backend is available",
		RequestID: requestID,
		Timestamp: time.Now(),
	}
}

func NewExtractionExhaustedError(requestID string, attempts int, cause error) *AnalysisError {
	return &AnalysisError{
		Code:      ErrorExtractionExhausted,
		Message:   "OCR processing failed",
		RequestID: requestID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"attempts": attempts,
		},
		Cause: cause,
	}
}

func NewProcessingTimeoutError(requestID string, duration time.Duration, cause error) *AnalysisError {
	return &AnalysisError{
		Code:      ErrorProcessingTimeout,
		Message:   fmt.Sprintf("Processing timed out after %v", duration),
		RequestID: requestID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"timeout_duration": duration.String(),
		},
		Cause: cause,
	}
}

func NewRefinementFailedError(requestID string, model string, cause error) *AnalysisError {
	return &AnalysisError{
		Code:      ErrorRefinementFailed,
		Message:   fmt.Sprintf("Refinement failed with model: %s", model),
		RequestID: requestID,
		Timestamp: time.Now(),
		Details: map[string]interface{}{
			"model": model,
		},
		Cause: cause,
	}
}

func NewLexiconUnavailableError(cause error) *AnalysisError {
	return &AnalysisError{
		Code:      ErrorLexiconUnavailable,
		Message:   "Failed to build lexicon from corpus",
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewStorageFailedError(requestID string, cause error) *AnalysisError {
	return &AnalysisError{
		Code:      ErrorStorageFailed,
		Message:   "Failed to store analysis results",
		RequestID: requestID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewQueueFailedError(requestID string, cause error) *AnalysisError {
	return &AnalysisError{
		Code:      ErrorQueueFailed,
		Message:   "Failed to enqueue analysis job",
		RequestID: requestID,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

func NewJobNotFoundError(jobID string) *AnalysisError {
	return &AnalysisError{
		Code:      ErrorJobNotFound,
		Message:   fmt.Sprintf("Job not found: %s", jobID),
		RequestID: jobID,
		Timestamp: time.Now(),
	}
}

func NewJobExistsError(jobID string) *AnalysisError {
	return &AnalysisError{
		Code:      ErrorJobExists,
		Message:   fmt.Sprintf("Job already exists: %s", jobID),
		RequestID: jobID,
		Timestamp: time.Now(),
	}
}

// ToMap converts error to map for job records
func (e *AnalysisError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_code": string(e.Code),
		"message":    e.Message,
		"timestamp":  e.Timestamp,
	}

	for k, v := range e.Details {
		result[k] = v
	}

	if e.Cause != nil {
		result["cause"] = e.Cause.Error()
	}

	return result
}

// As returns the first AnalysisError in err's chain.
func As(err error) (*AnalysisError, bool) {
	var ae *AnalysisError
	if stderrors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// CodeOf returns the code of the first AnalysisError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return ""
}

// HTTPStatus returns the HTTP status for any error; unstructured errors are 500.
func HTTPStatus(err error) int {
	if ae, ok := As(err); ok {
		return ae.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// Retryable reports whether err is worth retrying; unstructured errors are.
func Retryable(err error) bool {
	if ae, ok := As(err); ok {
		return ae.Retryable()
	}
	return true
}
