package document

import "errors"

var (
	// ErrUnsupportedFormat indicates the input is neither PDF, DOCX nor plain text.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrExtraction indicates the bytes could not be parsed as the declared format.
	ErrExtraction = errors.New("text extraction failed")
)
