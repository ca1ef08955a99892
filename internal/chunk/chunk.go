// Package chunk splits extracted document text into ordered segments: first
// into character-budgeted chunks along unit (page) boundaries, then into
// token-budgeted sub-chunks that fit a single LLM call.
package chunk

import (
	"strings"
	"unicode/utf8"
)

// DefaultCharBudget is the target chunk size in characters.
const DefaultCharBudget = 10000

// Chunk is a contiguous, character-budgeted piece of a document.
type Chunk struct {
	Index int    // 0-based position in the document
	Text  string // whitespace-normalized content
}

// Normalize collapses every run of whitespace to a single space and trims the ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// BySize accumulates units into chunks of at most charBudget characters.
//
// Units are normalized first and never split: a unit is appended to the
// current chunk (with a single space separator) if the result stays within
// the budget, otherwise the current chunk is flushed and the unit starts the
// next one. A unit longer than the budget on its own becomes an oversized
// chunk. Units that are empty after normalization are skipped.
//
// A non-positive charBudget falls back to DefaultCharBudget.
func BySize(units []string, charBudget int) []Chunk {
	if charBudget <= 0 {
		charBudget = DefaultCharBudget
	}

	var chunks []Chunk
	var acc strings.Builder
	accLen := 0

	flush := func() {
		if accLen == 0 {
			return
		}
		chunks = append(chunks, Chunk{Index: len(chunks), Text: acc.String()})
		acc.Reset()
		accLen = 0
	}

	for _, unit := range units {
		text := Normalize(unit)
		if text == "" {
			continue
		}
		n := utf8.RuneCountInString(text)

		if accLen > 0 && accLen+1+n > charBudget {
			flush()
		}
		if accLen > 0 {
			acc.WriteByte(' ')
			accLen++
		}
		acc.WriteString(text)
		accLen += n
	}
	flush()

	return chunks
}

// Texts returns the text of each chunk in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
