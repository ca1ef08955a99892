package transform

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/alnah/go-doctranslate/internal/lang"
	"github.com/alnah/go-doctranslate/internal/llm"
)

// Func transforms one piece of text. Implementations must be safe for
// concurrent use.
type Func func(ctx context.Context, text string) (string, error)

// Config selects the model call behind a Func.
type Config struct {
	Mode            Mode
	Target          lang.Language
	Model           string
	Temperature     float32
	MaxOutputTokens int
}

// Scope identifies everything besides the input text that determines the
// output. Identical scope and text yield interchangeable results.
func (c Config) Scope() string {
	target := c.Target
	if target.IsZero() {
		target = lang.English
	}
	sum := sha256.Sum256([]byte(c.Mode.Prompt(target)))
	return fmt.Sprintf("%s:%s:%s:%s", c.Mode, target, c.Model, hex.EncodeToString(sum[:4]))
}

// New returns a Func that sends cfg.Mode's prompt and the text to c.
func New(c llm.Completer, cfg Config) Func {
	prompt := cfg.Mode.Prompt(cfg.Target)
	return func(ctx context.Context, text string) (string, error) {
		return c.Complete(ctx, llm.Request{
			Prompt:          prompt,
			Input:           text,
			Model:           cfg.Model,
			Temperature:     cfg.Temperature,
			MaxOutputTokens: cfg.MaxOutputTokens,
		})
	}
}
