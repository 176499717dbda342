// Package gemini implements llm.Client over the Google GenAI SDK.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"parley/pkg/llm"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// Client wraps the Google GenAI client. The underlying client needs a
// context to construct, so it is created lazily on first use.
type Client struct {
	client *genai.Client
	apiKey string
	model  string
}

// New creates a Gemini-backed completion client.
func New(apiKey, model string) llm.Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{apiKey: apiKey, model: model}
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, in llm.Request) (llm.Response, error) {
	if c.client == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  c.apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return llm.Response{}, fmt.Errorf("failed to create gemini client: %w", err)
		}
		c.client = client
	}

	var systemInstruction string
	var contents []*genai.Content
	for i := range in.Messages {
		msg := &in.Messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			if systemInstruction != "" {
				systemInstruction += "\n\n"
			}
			systemInstruction += msg.Content
		case llm.RoleUser:
			contents = append(contents, &genai.Content{
				Role:  "user",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		case llm.RoleAssistant:
			// Gemini names the assistant role "model".
			contents = append(contents, &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}
	if len(contents) == 0 {
		return llm.Response{}, fmt.Errorf("request must contain at least one non-system message")
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     &in.Temperature,
		MaxOutputTokens: int32(in.MaxTokens), //nolint:gosec // budget validated upstream
	}
	if systemInstruction != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: systemInstruction}},
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return llm.Response{}, fmt.Errorf("gemini API failed: %w", err)
	}
	if result == nil {
		return llm.Response{}, fmt.Errorf("empty response from gemini API")
	}

	return llm.Response{Content: result.Text()}, nil
}

// ModelName implements llm.Client.
func (c *Client) ModelName() string {
	return c.model
}
