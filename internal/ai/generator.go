// Package ai wraps the external text-generation model used for assistant
// replies and recommendation hints.
package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// ErrUnavailable is returned when no model is configured.
var ErrUnavailable = errors.New("text generation unavailable")

// TextGenerator produces a completion for a single prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to TextGenerator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Unavailable always fails with ErrUnavailable.
var Unavailable TextGenerator = GeneratorFunc(func(context.Context, string) (string, error) {
	return "", ErrUnavailable
})

// GeminiClient holds one Gemini API client shared by every model handle.
type GeminiClient struct {
	client *genai.Client
}

// NewGeminiClient creates a client for the Gemini developer API.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiClient{client: client}, nil
}

// Model returns a generator bound to the named model.
func (g *GeminiClient) Model(name string) TextGenerator {
	return &geminiModel{client: g.client, name: name}
}

type geminiModel struct {
	client *genai.Client
	name   string
}

func (m *geminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.name, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini %s: %w", m.name, err)
	}
	return resp.Text(), nil
}
