package extract

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when the input path does not exist.
	ErrNotFound = errors.New("resume file not found")
	// ErrExtractionFailed is matched by every *ExtractionError.
	ErrExtractionFailed = errors.New("text extraction failed")
	// ErrInsufficientText marks a method that ran but produced too little text.
	ErrInsufficientText = errors.New("insufficient text")
)

// MethodError records why one extraction method was rejected.
type MethodError struct {
	Method string
	Err    error
}

func (e MethodError) Error() string {
	return e.Method + ": " + e.Err.Error()
}

// ExtractionError is returned when every method failed or produced too little text.
type ExtractionError struct {
	Path   string
	Causes []MethodError
}

func (e *ExtractionError) Error() string {
	parts := make([]string, 0, len(e.Causes))
	for _, c := range e.Causes {
		parts = append(parts, c.Error())
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s: no extraction methods configured", ErrExtractionFailed)
	}
	return fmt.Sprintf("%s: %s", ErrExtractionFailed, strings.Join(parts, "; "))
}

func (e *ExtractionError) Is(target error) bool {
	return target == ErrExtractionFailed
}

// Unwrap exposes the per-method causes to errors.Is/As.
func (e *ExtractionError) Unwrap() []error {
	out := make([]error, 0, len(e.Causes))
	for _, c := range e.Causes {
		out = append(out, c.Err)
	}
	return out
}
