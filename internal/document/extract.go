package document

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	docx "baliance.com/gooxml/document"
	"github.com/ledongthuc/pdf"
)

// Extractor turns a Document into ordered text units: one unit per page for
// PDF, a single unit for flat formats.
type Extractor interface {
	Extract(ctx context.Context, doc Document) ([]string, error)
}

// Compile-time interface compliance check.
var _ Extractor = TextExtractor{}

// TextExtractor extracts text from PDF, DOCX and plain text documents.
type TextExtractor struct{}

// Extract implements Extractor. Failures wrap ErrExtraction; no partial
// output is returned.
func (TextExtractor) Extract(ctx context.Context, doc Document) ([]string, error) {
	switch doc.Format {
	case FormatPDF:
		return extractPDF(ctx, doc.Data)
	case FormatDOCX:
		text, err := extractDOCX(doc.Data)
		if err != nil {
			return nil, err
		}
		return []string{text}, nil
	case FormatText:
		if !utf8.Valid(doc.Data) {
			return nil, fmt.Errorf("%s is not valid UTF-8: %w", doc.Name, ErrExtraction)
		}
		return []string{string(doc.Data)}, nil
	}
	return nil, fmt.Errorf("%q: %w", doc.Format, ErrUnsupportedFormat)
}

// extractPDF returns the plain text of every page in order. Pages without
// content yield an empty unit so page numbering is preserved.
func extractPDF(ctx context.Context, data []byte) (units []string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			units = nil
			err = fmt.Errorf("malformed pdf: %v: %w", r, ErrExtraction)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %v: %w", err, ErrExtraction)
	}

	n := r.NumPage()
	units = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			units = append(units, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %v: %w", i, err, ErrExtraction)
		}
		units = append(units, text)
	}
	return units, nil
}

// extractDOCX returns the text of the body paragraphs joined by newlines.
// Each paragraph's runs are concatenated as they appear.
func extractDOCX(data []byte) (text string, err error) {
	// The docx package panics on some malformed packages.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = fmt.Errorf("malformed docx: %v: %w", r, ErrExtraction)
		}
	}()

	doc, err := docx.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx: %v: %w", err, ErrExtraction)
	}

	paragraphs := doc.Paragraphs()
	lines := make([]string, len(paragraphs))
	for i, p := range paragraphs {
		var b strings.Builder
		for _, r := range p.Runs() {
			b.WriteString(r.Text())
		}
		lines[i] = b.String()
	}
	return strings.Join(lines, "\n"), nil
}
