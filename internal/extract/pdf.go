package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"code.sajari.com/docconv"
	"github.com/ledongthuc/pdf"

	"internship-portal/internal/shared/telemetry"
)

// PageReader extracts text page by page with ledongthuc/pdf. Pages that fail are skipped.
type PageReader struct{}

func (PageReader) Name() string { return "pdf_pages" }

func (PageReader) Extract(ctx context.Context, path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	parts := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := pageText(r, i)
		if err != nil {
			telemetry.Warn("extract.page_skipped", map[string]any{
				"page":  i,
				"path":  path,
				"error": err.Error(),
			})
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, pageSeparator), nil
}

func pageText(r *pdf.Reader, index int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("page %d: panic: %v", index, rec)
		}
	}()
	page := r.Page(index)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

// PopplerReader runs pdftotext through docconv. Slower, but copes with layouts
// that defeat the pure-Go parser.
type PopplerReader struct{}

func (PopplerReader) Name() string { return "pdftotext" }

func (PopplerReader) Extract(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	body, _, err := docconv.ConvertPDF(f)
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return joinPages(strings.Split(body, "\f")), nil
}

func joinPages(pages []string) string {
	out := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p) == "" {
			continue
		}
		out = append(out, p)
	}
	return strings.Join(out, pageSeparator)
}
