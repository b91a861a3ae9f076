package ai

import "context"

// Turn is one conversation turn passed to a streaming generation call.
// Role is "user" or "assistant".
type Turn struct {
	Role string
	Text string
}

// TextGenerator generates text from a system prompt and user prompt.
// All LLM providers (Gemini, Ollama) implement this interface.
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// StreamGenerator produces a response as an ordered sequence of text
// fragments. onFragment is invoked synchronously for every fragment in
// arrival order; the next fragment is not read until it returns. A non-nil
// error from onFragment aborts the stream and is returned unchanged.
type StreamGenerator interface {
	GenerateTextStream(ctx context.Context, systemInstruction string, turns []Turn, onFragment func(fragment string) error) error
}
