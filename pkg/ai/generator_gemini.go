package ai

import "context"

// GeminiGenerator wraps GeminiClient with a fixed model.
type GeminiGenerator struct {
	client *GeminiClient
	model  string
	fast   bool
}

// NewGeminiGenerator builds a Gemini-based generator. When fast is true,
// single-shot generations run with internal reasoning disabled.
func NewGeminiGenerator(client *GeminiClient, model string, fast bool) *GeminiGenerator {
	return &GeminiGenerator{client: client, model: model, fast: fast}
}

// GenerateText implements TextGenerator using Gemini.
func (g *GeminiGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if g.fast {
		return g.client.GenerateTextFast(ctx, g.model, systemPrompt, userPrompt)
	}
	return g.client.GenerateText(ctx, g.model, systemPrompt, userPrompt)
}

// GenerateTextStream implements StreamGenerator using Gemini SSE streaming.
func (g *GeminiGenerator) GenerateTextStream(ctx context.Context, systemInstruction string, turns []Turn, onFragment func(string) error) error {
	return g.client.GenerateTextStream(ctx, g.model, systemInstruction, turns, onFragment)
}
