package transform

import (
	"context"
	"fmt"
	"strings"

	"github.com/alnah/go-doctranslate/internal/lang"
	"github.com/alnah/go-doctranslate/internal/llm"
)

// Tone is the register of a composed email.
type Tone string

// Supported tones.
const (
	Formal       Tone = "formal"
	Professorial Tone = "professorial"
	Polite       Tone = "polite"
	Casual       Tone = "casual"
	Festive      Tone = "festive"
)

var toneOrder = []Tone{Formal, Professorial, Polite, Casual, Festive}

// Email generation settings.
const (
	emailTemperature     = 0.2
	emailMaxOutputTokens = 4000
)

// ParseTone validates a tone name.
func ParseTone(s string) (Tone, error) {
	for _, t := range toneOrder {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tone %q (use %s): %w", s, strings.Join(Tones(), ", "), ErrUnknownTone)
}

// Tones returns the supported tones in a stable order.
func Tones() []string {
	result := make([]string, len(toneOrder))
	for i, t := range toneOrder {
		result[i] = string(t)
	}
	return result
}

// EmailPrompt builds the single message that asks for an email written in
// target containing info with the given tone.
func EmailPrompt(info string, tone Tone, target lang.Language) (string, error) {
	info = strings.TrimSpace(info)
	if info == "" {
		return "", fmt.Errorf("email information: %w", ErrEmptyInput)
	}
	if _, err := ParseTone(string(tone)); err != nil {
		return "", err
	}
	if target.IsZero() {
		target = lang.English
	}
	return fmt.Sprintf("Write an email in %s using the following information '%s'. The tone of the email should be '%s'.",
		target.DisplayName(), info, tone), nil
}

// WriteEmail composes an email through c. Input is validated before any call.
func WriteEmail(ctx context.Context, c llm.Completer, model, info string, tone Tone, target lang.Language) (string, error) {
	prompt, err := EmailPrompt(info, tone, target)
	if err != nil {
		return "", err
	}
	out, err := c.Complete(ctx, llm.Request{
		Prompt:          prompt,
		Model:           model,
		Temperature:     emailTemperature,
		MaxOutputTokens: emailMaxOutputTokens,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
