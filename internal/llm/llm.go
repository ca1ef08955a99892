// Package llm sends a system prompt and an input text to a chat completion
// model and returns the model's text reply.
package llm

import "context"

// Request is one chat completion call. Prompt becomes the system message and
// Input the user message; an empty Input sends the prompt alone.
type Request struct {
	Prompt          string
	Input           string
	Model           string
	Temperature     float32
	MaxOutputTokens int
}

// Completer returns the model output for a single request.
// Implementations classify provider failures into apierr sentinels.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
