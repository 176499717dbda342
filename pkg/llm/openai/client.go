// Package openai implements llm.Client over the official OpenAI Go SDK
// using the Responses API.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"

	"parley/pkg/llm"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// Client wraps the official OpenAI client.
type Client struct {
	client openai.Client
	model  string
}

// New creates an OpenAI-backed completion client.
func New(apiKey, model string) llm.Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, in llm.Request) (llm.Response, error) {
	// The Responses API takes a single input string; fold the conversation
	// into one prompt, keeping role markers for non-user turns.
	var input strings.Builder
	for i := range in.Messages {
		msg := &in.Messages[i]
		switch msg.Role {
		case llm.RoleSystem:
			fmt.Fprintf(&input, "System: %s\n\n", msg.Content)
		case llm.RoleAssistant:
			fmt.Fprintf(&input, "Assistant: %s\n\n", msg.Content)
		case llm.RoleUser:
			input.WriteString(msg.Content)
		}
	}

	params := responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: openai.Int(int64(in.MaxTokens)),
		Input:           responses.ResponseNewParamsInputUnion{OfString: openai.String(input.String())},
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return llm.Response{}, fmt.Errorf("openai responses API failed: %w", err)
	}
	if resp == nil {
		return llm.Response{}, fmt.Errorf("empty response from openai responses API")
	}

	return llm.Response{Content: resp.OutputText()}, nil
}

// ModelName implements llm.Client.
func (c *Client) ModelName() string {
	return c.model
}
