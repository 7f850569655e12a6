package common

import (
	"errors"
	"fmt"
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

// Pipeline error kinds. Every stage surfaces exactly one of these unchanged,
// so the shell can tell infrastructure failures apart from model-quality
// failures with errors.Is.
var (
	// ErrExtractionFailure: the OCR read job failed upstream or timed out.
	ErrExtractionFailure = errors.New("text extraction failed")
	// ErrVisionService: the image analyze call failed at the transport level.
	ErrVisionService = errors.New("vision service failed")
	// ErrCompletionService: the generation call failed at the transport level.
	ErrCompletionService = errors.New("completion service failed")
	// ErrMalformedCompletion: no recoverable JSON in the generation reply.
	ErrMalformedCompletion = errors.New("no recoverable JSON in completion")
	// ErrInvalidStrideShape: recovered JSON cannot be interpreted as a STRIDE
	// document even after repair.
	ErrInvalidStrideShape = errors.New("completion JSON is not a STRIDE document")

	ErrInvalidInput = errors.New("invalid input")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
