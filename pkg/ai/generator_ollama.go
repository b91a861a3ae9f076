package ai

import (
	"context"
	"fmt"
	"strings"
)

// OllamaGenerator wraps OllamaClient with a fixed model using the
// Ollama /api/chat endpoint.
type OllamaGenerator struct {
	client *OllamaClient
	model  string
}

// NewOllamaGenerator builds an Ollama-based generator.
func NewOllamaGenerator(client *OllamaClient, model string) *OllamaGenerator {
	return &OllamaGenerator{client: client, model: model}
}

// GenerateText implements TextGenerator using Ollama /api/chat.
func (g *OllamaGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	model := strings.TrimSpace(g.model)
	if model == "" {
		return "", fmt.Errorf("ollama generation model required")
	}

	messages := make([]ollamaChatMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, ollamaChatMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, ollamaChatMessage{Role: "user", Content: userPrompt})

	reqBody := ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
	}

	var resp ollamaChatResponse
	if err := g.client.doJSON(ctx, "/api/chat", reqBody, &resp); err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	if strings.TrimSpace(resp.Message.Content) == "" {
		return "", fmt.Errorf("empty response from ollama")
	}
	return resp.Message.Content, nil
}

// GenerateTextStream implements StreamGenerator using Ollama /api/chat with
// stream enabled; fragments arrive as newline-delimited JSON chunks.
func (g *OllamaGenerator) GenerateTextStream(ctx context.Context, systemInstruction string, turns []Turn, onFragment func(string) error) error {
	model := strings.TrimSpace(g.model)
	if model == "" {
		return fmt.Errorf("ollama generation model required")
	}

	messages := make([]ollamaChatMessage, 0, len(turns)+1)
	if strings.TrimSpace(systemInstruction) != "" {
		messages = append(messages, ollamaChatMessage{Role: "system", Content: systemInstruction})
	}
	for _, t := range turns {
		messages = append(messages, ollamaChatMessage{Role: t.Role, Content: t.Text})
	}

	reqBody := ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   true,
	}
	return g.client.doStream(ctx, "/api/chat", reqBody, func(chunk ollamaChatResponse) error {
		if chunk.Message.Content == "" {
			return nil
		}
		return onFragment(chunk.Message.Content)
	})
}
