// Package transform defines the text-to-text operations applied to document
// segments (translate, summarize, review) and the email composer, with the
// prompts that drive them.
package transform

import (
	"fmt"
	"strings"

	"github.com/alnah/go-doctranslate/internal/lang"
)

// Mode name constants.
const (
	Translate = "translate"
	Summarize = "summarize"
	Review    = "review"
)

// ---------------------------------------------------------------------------
// Mode type - represents a validated transform mode
// ---------------------------------------------------------------------------

// Mode is a validated transform mode. The zero value is invalid.
type Mode struct {
	name string
}

// Pre-parsed modes.
var (
	TranslateMode = Mode{name: Translate}
	SummarizeMode = Mode{name: Summarize}
	ReviewMode    = Mode{name: Review}
)

// userModes lists the modes a user may pick as the first pass, in help order.
// Review only runs as a second pass.
var userModes = []string{Translate, Summarize}

// ParseMode validates a user-selected first-pass mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case Translate:
		return TranslateMode, nil
	case Summarize:
		return SummarizeMode, nil
	case "":
		return Mode{}, fmt.Errorf("mode cannot be empty: %w", ErrUnknownMode)
	}
	return Mode{}, fmt.Errorf("unknown mode %q (use %s): %w", s, strings.Join(userModes, ", "), ErrUnknownMode)
}

// Modes returns the user-selectable modes in a stable order.
func Modes() []string {
	result := make([]string, len(userModes))
	copy(result, userModes)
	return result
}

// String returns the mode name, or "" for the zero value.
func (m Mode) String() string {
	return m.name
}

// IsZero reports whether no mode was set.
func (m Mode) IsZero() bool {
	return m.name == ""
}

// Prompt returns the system prompt for this mode. target is the output
// language; the zero value means English. Panics on the zero Mode.
func (m Mode) Prompt(target lang.Language) string {
	if target.IsZero() {
		target = lang.English
	}
	name := target.DisplayName()

	switch m.name {
	case Translate:
		return fmt.Sprintf(translatePrompt, name)
	case Summarize:
		return fmt.Sprintf(summarizePrompt, name)
	case Review:
		return fmt.Sprintf(reviewPrompt, name)
	}
	panic("transform.Mode.Prompt called on zero value")
}

// Prompts are versioned with the binary. Config.Scope hashes the rendered
// prompt, so editing one invalidates cached results.

const translatePrompt = `Translate this document into %s.

Rules:
- Translate everything; do not summarize or omit passages
- Keep names, numbers, dates and units exactly as written
- Preserve paragraph breaks, lists and headings
- Output only the translation, with no preamble or notes`

const summarizePrompt = `Summarize this document excerpt in %s.

Rules:
- Keep every key fact, figure and decision
- Use short paragraphs or bullet points
- Do not add information that is not in the text
- Output only the summary, with no preamble`

const reviewPrompt = `You review a machine-produced text written in %s.

Rules:
- Fix grammar, spelling and awkward phrasing
- Fix obvious translation errors and inconsistent terminology
- Do not shorten, summarize or restructure the text
- Output only the corrected text`
