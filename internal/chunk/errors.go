package chunk

import "errors"

var (
	// ErrTokenizer indicates the tokenizer could not be loaded or could not encode the text.
	// Without a tokenizer the pipeline cannot bound LLM inputs, so this is fatal.
	ErrTokenizer = errors.New("tokenizer unavailable")

	// ErrInvalidBudget indicates a non-positive token budget.
	ErrInvalidBudget = errors.New("token budget must be positive")
)
