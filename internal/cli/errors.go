package cli

import "errors"

// CLI-specific sentinel errors.
// These are validation/usage errors that don't belong to domain packages.

// Environment variables read by the CLI.
const (
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvOpenAIBaseURL = "OPENAI_BASE_URL"
)

var (
	// ErrAPIKeyMissing indicates OPENAI_API_KEY environment variable is not set.
	ErrAPIKeyMissing = errors.New("OPENAI_API_KEY environment variable not set")

	// ErrFileNotFound indicates the specified input file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrEmptyDocument indicates the input produced no text to process.
	ErrEmptyDocument = errors.New("document contains no text")

	// ErrCacheUnavailable indicates the configured cache backend could not be opened.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrStdoutFormat indicates a binary format was requested on stdout.
	ErrStdoutFormat = errors.New("only txt can be written to stdout")
)
