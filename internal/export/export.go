// Package export renders a finished document as plain text or DOCX and
// writes it to disk without overwriting existing files.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	docx "baliance.com/gooxml/document"
)

var (
	// ErrOutputExists indicates the output file already exists.
	ErrOutputExists = errors.New("output file already exists")

	// ErrUnknownFormat indicates an unsupported export format.
	ErrUnknownFormat = errors.New("unknown export format")
)

// Format is an export file format.
type Format string

// Supported formats.
const (
	TXT  Format = "txt"
	DOCX Format = "docx"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case TXT, DOCX:
		return f, nil
	}
	return "", fmt.Errorf("%q (use txt or docx): %w", s, ErrUnknownFormat)
}

// FormatForPath picks the format from the file extension; anything other
// than .docx is written as text.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".docx") {
		return DOCX
	}
	return TXT
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	return "." + string(f)
}

// Render encodes text in format f.
func Render(text string, f Format) ([]byte, error) {
	switch f {
	case TXT:
		return []byte(text), nil
	case DOCX:
		return renderDOCX(text)
	}
	return nil, fmt.Errorf("%q: %w", f, ErrUnknownFormat)
}

// renderDOCX writes one paragraph per line of text.
func renderDOCX(text string) ([]byte, error) {
	doc := docx.New()
	for _, line := range strings.Split(text, "\n") {
		p := doc.AddParagraph()
		if line != "" {
			p.AddRun().AddText(line)
		}
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, fmt.Errorf("encode docx: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteFile writes data to path. It fails with ErrOutputExists if the file
// already exists (O_EXCL), and removes the partial file on write failure.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("cannot create output directory: %w", err)
		}
	}

	// #nosec G302 G304 -- user-specified output file with standard permissions
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w", path, ErrOutputExists)
		}
		return fmt.Errorf("cannot create output file: %w", err)
	}

	writeErr := func() error {
		defer func() { _ = f.Close() }()
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return f.Sync()
	}()

	if writeErr != nil {
		_ = os.Remove(path)
		return writeErr
	}
	return nil
}

// DerivePath returns the default output path for input: the input name with
// suffix appended before the new extension, placed in dir when set.
// "report.pdf", "en", DOCX -> "report.en.docx".
func DerivePath(input, suffix, dir string, f Format) string {
	base := filepath.Base(input)
	if input == "" || input == "-" {
		base = "stdin"
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if suffix != "" {
		stem += "." + suffix
	}
	name := stem + f.Extension()
	if dir == "" {
		dir = filepath.Dir(input)
		if input == "" || input == "-" {
			dir = "."
		}
	}
	return filepath.Join(dir, name)
}
