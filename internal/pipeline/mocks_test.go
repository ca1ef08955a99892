package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// runeTokenizer treats every rune as one token.
type runeTokenizer struct{}

func (runeTokenizer) Encode(text string) ([]int, error) {
	ids := make([]int, 0, len(text))
	for _, r := range text {
		ids = append(ids, int(r))
	}
	return ids, nil
}

func (runeTokenizer) Decode(ids []int) (string, error) {
	var b strings.Builder
	for _, id := range ids {
		b.WriteRune(rune(id))
	}
	return b.String(), nil
}

func (runeTokenizer) Name() string { return "runes" }

// brokenTokenizer fails to encode.
type brokenTokenizer struct{}

func (brokenTokenizer) Encode(string) ([]int, error) { return nil, errors.New("no vocab") }
func (brokenTokenizer) Decode([]int) (string, error) { return "", nil }
func (brokenTokenizer) Name() string                 { return "broken" }

// recordingTransform upper-cases its input and records every call.
type recordingTransform struct {
	mu     sync.Mutex
	inputs []string
	hook   func(call int, text string) error
}

func (r *recordingTransform) fn(_ context.Context, text string) (string, error) {
	r.mu.Lock()
	r.inputs = append(r.inputs, text)
	call := len(r.inputs)
	hook := r.hook
	r.mu.Unlock()

	if hook != nil {
		if err := hook(call, text); err != nil {
			return "", err
		}
	}
	return strings.ToUpper(text), nil
}

func (r *recordingTransform) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inputs)
}
