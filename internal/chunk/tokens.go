package chunk

import (
	"fmt"
	"unicode/utf8"
)

// DefaultTokenBudget is the per-call token ceiling for sub-chunks.
const DefaultTokenBudget = 5000

// Tokenizer converts text to model token ids and back.
// Decoding the concatenation of consecutive windows must reproduce the
// original text byte for byte.
type Tokenizer interface {
	Encode(text string) ([]int, error)
	Decode(ids []int) (string, error)
	// Name identifies the encoding (e.g. "o200k_base").
	Name() string
}

// SubChunk is a token-budgeted window of a Chunk, sized for one LLM call.
type SubChunk struct {
	Index  int    // 0-based position within the parent chunk
	Text   string // decoded window text
	Tokens int    // number of tokens in the window
}

// ByTokens slices text into consecutive windows of at most tokenBudget tokens.
// The budget is a hard ceiling. A window that would end inside a multi-byte
// rune is shortened to the previous rune boundary, unless even a single token
// cannot end on one. Empty text yields no sub-chunks and no error.
func ByTokens(tok Tokenizer, text string, tokenBudget int) ([]SubChunk, error) {
	if tokenBudget <= 0 {
		return nil, fmt.Errorf("got %d: %w", tokenBudget, ErrInvalidBudget)
	}
	if text == "" {
		return nil, nil
	}
	if tok == nil {
		return nil, fmt.Errorf("no tokenizer configured: %w", ErrTokenizer)
	}

	ids, err := tok.Encode(text)
	if err != nil {
		return nil, fmt.Errorf("encode with %s: %v: %w", tok.Name(), err, ErrTokenizer)
	}

	subs := make([]SubChunk, 0, (len(ids)+tokenBudget-1)/tokenBudget)
	for start := 0; start < len(ids); {
		end := min(start+tokenBudget, len(ids))
		window, err := tok.Decode(ids[start:end])
		if err != nil {
			return nil, fmt.Errorf("decode with %s: %v: %w", tok.Name(), err, ErrTokenizer)
		}
		if end < len(ids) {
			end, window, err = runeBoundary(tok, ids, start, end, window)
			if err != nil {
				return nil, fmt.Errorf("decode with %s: %v: %w", tok.Name(), err, ErrTokenizer)
			}
		}
		subs = append(subs, SubChunk{Index: len(subs), Text: window, Tokens: end - start})
		start = end
	}
	return subs, nil
}

// runeBoundary pulls end back by at most utf8.UTFMax-1 tokens until the
// decoded window no longer ends in a partial rune. It returns end unchanged
// when no shorter window qualifies.
func runeBoundary(tok Tokenizer, ids []int, start, end int, window string) (int, string, error) {
	if !endsMidRune(window) {
		return end, window, nil
	}
	for cut := end - 1; cut > start && end-cut < utf8.UTFMax; cut-- {
		w, err := tok.Decode(ids[start:cut])
		if err != nil {
			return 0, "", err
		}
		if !endsMidRune(w) {
			return cut, w, nil
		}
	}
	return end, window, nil
}

func endsMidRune(s string) bool {
	r, size := utf8.DecodeLastRuneInString(s)
	return r == utf8.RuneError && size == 1
}

// Count returns the number of tokens in text.
func Count(tok Tokenizer, text string) (int, error) {
	if tok == nil {
		return 0, fmt.Errorf("no tokenizer configured: %w", ErrTokenizer)
	}
	ids, err := tok.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("encode with %s: %v: %w", tok.Name(), err, ErrTokenizer)
	}
	return len(ids), nil
}
