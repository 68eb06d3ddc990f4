// Package extract turns resume PDFs into plain text and screens the result.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"internship-portal/internal/shared/telemetry"
)

// MinChars is the minimum trimmed length for usable resume text.
const MinChars = 100

// pageSeparator joins page-level text.
const pageSeparator = "\n\n"

var resumeKeywords = []string{"experience", "education", "skills", "work", "project", "degree"}

// Method is one way of pulling text out of a PDF on disk.
type Method interface {
	Name() string
	Extract(ctx context.Context, path string) (string, error)
}

// Extractor tries each method in order until one yields enough text.
type Extractor struct {
	Methods  []Method
	MinChars int
}

// New returns an Extractor using per-page parsing first and pdftotext as fallback.
func New() *Extractor {
	return &Extractor{
		Methods:  []Method{PageReader{}, PopplerReader{}},
		MinChars: MinChars,
	}
}

// Extract returns the text of the PDF at path.
func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", &ExtractionError{Path: path, Causes: []MethodError{{Method: "stat", Err: err}}}
	}

	minChars := e.MinChars
	if minChars <= 0 {
		minChars = MinChars
	}

	failure := &ExtractionError{Path: path}
	for i, m := range e.Methods {
		if err := ctx.Err(); err != nil {
			failure.Causes = append(failure.Causes, MethodError{Method: m.Name(), Err: err})
			return "", failure
		}
		text, err := runMethod(ctx, m, path)
		if err == nil && len(strings.TrimSpace(text)) < minChars {
			err = fmt.Errorf("%w: %d chars", ErrInsufficientText, len(strings.TrimSpace(text)))
		}
		if err != nil {
			failure.Causes = append(failure.Causes, MethodError{Method: m.Name(), Err: err})
			if i < len(e.Methods)-1 {
				telemetry.Warn("extract.method_failed", map[string]any{
					"method": m.Name(),
					"path":   path,
					"error":  err.Error(),
				})
			}
			continue
		}
		telemetry.Info("extract.completed", map[string]any{
			"method": m.Name(),
			"chars":  len(text),
		})
		return text, nil
	}

	telemetry.Error("extract.failed", map[string]any{
		"path":  path,
		"error": failure.Error(),
	})
	return "", failure
}

func runMethod(ctx context.Context, m Method, path string) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return m.Extract(ctx, path)
}

// Validate reports whether text looks like a resume worth analyzing: long enough
// and mentioning at least one common resume section keyword.
func Validate(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < MinChars {
		telemetry.Warn("extract.validate.too_short", map[string]any{"chars": len(trimmed)})
		return false
	}
	lower := strings.ToLower(trimmed)
	for _, kw := range resumeKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	telemetry.Warn("extract.validate.no_keywords", map[string]any{"chars": len(trimmed)})
	return false
}
