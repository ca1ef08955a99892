package chunk

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Fallback encodings when neither the name nor the model is known to tiktoken.
const (
	encodingO200k  = "o200k_base" // gpt-4o family
	encodingCl100k = "cl100k_base"
)

// Compile-time interface compliance check.
var _ Tokenizer = (*Tiktoken)(nil)

// Tiktoken is a Tokenizer backed by tiktoken-go BPE encodings.
type Tiktoken struct {
	name string
	mu   sync.Mutex // tiktoken.Tiktoken caches internally and is not documented as goroutine-safe
	tke  *tiktoken.Tiktoken
}

// NewTiktoken loads the encoding for modelOrEncoding.
// It accepts an encoding name ("cl100k_base") or a model name ("gpt-4o-mini").
// Unknown models fall back to o200k_base for gpt-4o style names and
// cl100k_base otherwise. Load failures wrap ErrTokenizer.
func NewTiktoken(modelOrEncoding string) (*Tiktoken, error) {
	if modelOrEncoding == "" {
		modelOrEncoding = encodingCl100k
	}

	if tke, err := tiktoken.GetEncoding(modelOrEncoding); err == nil {
		return &Tiktoken{name: modelOrEncoding, tke: tke}, nil
	}
	if tke, err := tiktoken.EncodingForModel(modelOrEncoding); err == nil {
		return &Tiktoken{name: fallbackEncoding(modelOrEncoding), tke: tke}, nil
	}

	name := fallbackEncoding(modelOrEncoding)
	tke, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, fmt.Errorf("load %s for %q: %v: %w", name, modelOrEncoding, err, ErrTokenizer)
	}
	return &Tiktoken{name: name, tke: tke}, nil
}

func fallbackEncoding(model string) string {
	if strings.HasPrefix(model, "gpt-4o") || strings.HasPrefix(model, "o1") ||
		strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") ||
		strings.HasPrefix(model, "gpt-4.1") || strings.HasPrefix(model, "gpt-5") {
		return encodingO200k
	}
	return encodingCl100k
}

// Encode implements Tokenizer. Special-token text is encoded as ordinary text.
func (t *Tiktoken) Encode(text string) ([]int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tke.EncodeOrdinary(text), nil
}

// Decode implements Tokenizer.
func (t *Tiktoken) Decode(ids []int) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tke.Decode(ids), nil
}

// Name implements Tokenizer.
func (t *Tiktoken) Name() string {
	return t.name
}
