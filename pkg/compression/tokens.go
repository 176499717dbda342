package compression

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"

	"parley/pkg/item"
)

// TokenUsage is the token footprint of a message sequence.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// TokenCounter counts tokens with a tiktoken codec, falling back to a
// character-based estimate when counting fails.
type TokenCounter struct {
	codec tokenizer.Codec
}

// NewTokenCounter creates a counter using the GPT-4 encoding, which is a
// reasonable approximation for every provider this system talks to.
func NewTokenCounter() (*TokenCounter, error) {
	codec, err := tokenizer.ForModel(tokenizer.GPT4)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokenizer codec: %w", err)
	}
	return &TokenCounter{codec: codec}, nil
}

// Count returns the number of tokens in text.
func (tc *TokenCounter) Count(text string) int {
	if tc == nil || tc.codec == nil {
		return estimateTokens(len(text))
	}
	n, err := tc.codec.Count(text)
	if err != nil {
		return estimateTokens(len(text))
	}
	return n
}

// Usage computes token usage for a message sequence. Assistant output and
// reasoning traces count as output tokens; everything the model consumes
// (user/system messages, calls and their results) counts as input.
func (tc *TokenCounter) Usage(items []item.Item) TokenUsage {
	var usage TokenUsage
	for i := range items {
		it := &items[i]
		n := tc.Count(it.Text())
		if isModelOutput(it) {
			usage.Output += n
		} else {
			usage.Input += n
		}
	}
	usage.Total = usage.Input + usage.Output
	return usage
}

func isModelOutput(it *item.Item) bool {
	if it.Type == item.TypeReasoning {
		return true
	}
	return it.Type == item.TypeMessage && it.Role == "assistant"
}

// EstimateUsage is the degraded-mode fallback when no compression service
// is configured: serialized byte length over four, split evenly between
// input and output.
func EstimateUsage(items []item.Item) TokenUsage {
	total := estimateTokens(item.SerializeAll(items))
	half := total / 2
	return TokenUsage{
		Input:  half,
		Output: total - half,
		Total:  total,
	}
}

// Four characters per token is the usual rough cut.
func estimateTokens(byteLen int) int {
	return byteLen / 4
}
