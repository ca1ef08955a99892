// Package document holds uploaded source documents, identifies them by
// content fingerprint, and extracts their text as ordered units (one per
// page for paginated formats).
package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format is the declared source format of a Document.
type Format string

// Supported formats.
const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatText Format = "text"
)

// MIME types recognized by DetectFormat.
const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText = "text/plain"
)

// ParseFormat validates a format name. Accepts "pdf", "docx" and "text" (or "txt").
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "pdf":
		return FormatPDF, nil
	case "docx":
		return FormatDOCX, nil
	case "text", "txt", "md":
		return FormatText, nil
	}
	return "", fmt.Errorf("%q (use pdf, docx or text): %w", s, ErrUnsupportedFormat)
}

// DetectFormat sniffs data with mimetype and falls back to the file extension
// of name when the content is inconclusive (e.g. an empty text file).
func DetectFormat(name string, data []byte) (Format, error) {
	m := mimetype.Detect(data)
	switch {
	case m.Is(mimePDF):
		return FormatPDF, nil
	case m.Is(mimeDOCX):
		return FormatDOCX, nil
	}
	// Markdown, CSV, JSON and friends descend from text/plain.
	for p := m; p != nil; p = p.Parent() {
		if p.Is(mimeText) {
			return FormatText, nil
		}
	}

	if ext := filepath.Ext(name); ext != "" {
		if f, err := ParseFormat(ext); err == nil {
			return f, nil
		}
	}
	return "", fmt.Errorf("%s detected as %s: %w", name, m.String(), ErrUnsupportedFormat)
}

// Document is the raw content of an uploaded file. Treat it as immutable.
type Document struct {
	Name   string
	Format Format
	Data   []byte
}

// New builds a Document, detecting its format from content and name.
func New(name string, data []byte) (Document, error) {
	f, err := DetectFormat(name, data)
	if err != nil {
		return Document{}, err
	}
	return Document{Name: name, Format: f, Data: data}, nil
}

// Read loads a Document from disk.
func Read(path string) (Document, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is user-provided input file
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	return New(filepath.Base(path), data)
}

// Fingerprint returns the lowercase hex SHA-256 digest of the document bytes.
func (d Document) Fingerprint() string {
	return Fingerprint(d.Data)
}

// Fingerprint returns the lowercase hex SHA-256 digest of data.
func Fingerprint(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CacheKey identifies a finished result for a document processed in a given
// mode with a given model. Same bytes, mode and model yield the same key.
func CacheKey(fingerprint, mode, model string) string {
	return "doc:" + mode + ":" + model + ":" + fingerprint
}
