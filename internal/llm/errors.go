package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput means the resume text was rejected before any model call.
	ErrInvalidInput = errors.New("invalid analysis input")
	// ErrInvalidResponse means the model output could not be parsed or failed validation.
	ErrInvalidResponse = errors.New("invalid model response")
	// ErrAnalysisFailed is matched by *AnalysisError once retries are exhausted.
	ErrAnalysisFailed = errors.New("analysis failed")
)

// AnalysisError reports the last failure after every attempt was used.
type AnalysisError struct {
	Attempts int
	Err      error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrAnalysisFailed, e.Attempts, e.Err)
}

func (e *AnalysisError) Is(target error) bool { return target == ErrAnalysisFailed }

func (e *AnalysisError) Unwrap() error { return e.Err }

// ResponseError describes why a model reply was rejected. Field is empty when
// the reply could not be decoded at all.
type ResponseError struct {
	Field  string
	Reason string
}

func (e *ResponseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidResponse, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", ErrInvalidResponse, e.Reason, e.Field)
}

func (e *ResponseError) Is(target error) bool { return target == ErrInvalidResponse }

func invalidResponse(format string, args ...any) error {
	return &ResponseError{Reason: fmt.Sprintf(format, args...)}
}

func invalidField(field, format string, args ...any) error {
	return &ResponseError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
