package compression

import (
	"context"
	"fmt"
	"strings"

	"parley/pkg/config"
	"parley/pkg/item"
	"parley/pkg/llm"
	"parley/pkg/logx"
)

const (
	// summaryMaxTokens bounds the size of a generated summary.
	summaryMaxTokens = 512
	// summaryTemperature keeps summaries deterministic-ish.
	summaryTemperature = 0.2
)

const summarySystemPrompt = "You compact conversation history for an AI agent. " +
	"Summarize the given conversation segment into a short, factual digest that preserves " +
	"decisions, tool results, and any constraints mentioned. Reply with the digest only."

// Summarizer is the reference compression service. The summarize strategy
// replaces the middle of a conversation with an LLM-generated digest;
// truncate and selective work without a model and are also the fallback
// when no client is configured.
type Summarizer struct {
	client  llm.Client // nil is allowed; summarize then degrades to selective
	counter *TokenCounter
	logger  *logx.Logger

	// preserveContext keeps the conversation's opening item out of the
	// summarized segment.
	preserveContext bool
	// targetRatio is the serialized-size fraction truncation aims for.
	targetRatio float64
}

// NewSummarizer builds the reference compression service.
func NewSummarizer(client llm.Client, counter *TokenCounter, preserveContext bool, targetRatio float64) *Summarizer {
	if targetRatio <= 0 || targetRatio > 1 {
		targetRatio = 0.5
	}
	return &Summarizer{
		client:          client,
		counter:         counter,
		logger:          logx.NewLogger("compression"),
		preserveContext: preserveContext,
		targetRatio:     targetRatio,
	}
}

// AnalyzeTokenUsage implements Service.
func (s *Summarizer) AnalyzeTokenUsage(_ context.Context, items []item.Item) (TokenUsage, error) {
	return s.counter.Usage(items), nil
}

// CurateItems implements Service.
func (s *Summarizer) CurateItems(items []item.Item) []item.Item {
	return item.CurateValid(items)
}

// ValidateHealth implements Service.
func (s *Summarizer) ValidateHealth(items []item.Item) item.Health {
	return item.ValidateHealth(items)
}

// CompressConversation implements Service.
func (s *Summarizer) CompressConversation(ctx context.Context, items []item.Item, strategy string) (Result, error) {
	if len(items) < 2 {
		return Result{}, fmt.Errorf("%w: too few items to compress", ErrCompressionFailed)
	}
	originalSize := item.SerializeAll(items)
	if originalSize == 0 {
		return Result{}, fmt.Errorf("%w: empty conversation", ErrCompressionFailed)
	}

	var compacted []item.Item
	var err error
	switch strategy {
	case config.StrategySummarize:
		compacted, err = s.summarize(ctx, items)
	case config.StrategyTruncate:
		compacted = s.truncate(items, originalSize)
	case config.StrategySelective:
		compacted = s.selective(items, originalSize)
	default:
		return Result{}, fmt.Errorf("%w: unknown strategy %q", ErrCompressionFailed, strategy)
	}
	if err != nil {
		return Result{}, err
	}

	ratio := float64(item.SerializeAll(compacted)) / float64(originalSize)
	return Result{Items: compacted, Ratio: ratio}, nil
}

// summarize replaces the oldest segment of the conversation with a single
// digest message, keeping the opening item (when context preservation is
// on) and the most recent items verbatim.
func (s *Summarizer) summarize(ctx context.Context, items []item.Item) ([]item.Item, error) {
	if s.client == nil {
		s.logger.Warn("summarize requested without an LLM client, using selective compaction")
		return s.selective(items, item.SerializeAll(items)), nil
	}

	keepFirst := 0
	if s.preserveContext {
		keepFirst = 1
	}
	keepLast := len(items) / 5
	if keepLast < 2 {
		keepLast = 2
	}
	if len(items) <= keepFirst+keepLast+1 {
		return nil, fmt.Errorf("%w: conversation too short to summarize", ErrCompressionFailed)
	}

	segment := items[keepFirst : len(items)-keepLast]
	digest, err := s.digest(ctx, segment)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCompressionFailed, err)
	}

	out := make([]item.Item, 0, keepFirst+1+keepLast)
	out = append(out, items[:keepFirst]...)
	out = append(out, item.NewMessage("system", fmt.Sprintf("Summary of %d earlier items: %s", len(segment), digest)))
	out = append(out, items[len(items)-keepLast:]...)
	return out, nil
}

func (s *Summarizer) digest(ctx context.Context, segment []item.Item) (string, error) {
	var b strings.Builder
	for i := range segment {
		it := &segment[i]
		switch it.Type {
		case item.TypeMessage:
			fmt.Fprintf(&b, "%s: %s\n", it.Role, it.Text())
		case item.TypeFunctionCall:
			fmt.Fprintf(&b, "tool call %s(%s)\n", it.Name, it.Arguments)
		case item.TypeFunctionCallOutput:
			fmt.Fprintf(&b, "tool result: %s\n", it.Output)
		case item.TypeReasoning:
			// Reasoning traces carry no durable facts worth summarizing.
		}
	}

	resp, err := s.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			llm.NewSystemMessage(summarySystemPrompt),
			llm.NewUserMessage(b.String()),
		},
		MaxTokens:   summaryMaxTokens,
		Temperature: summaryTemperature,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Content) == "" {
		return "", fmt.Errorf("summarizer returned an empty digest")
	}
	return strings.TrimSpace(resp.Content), nil
}

// truncate drops the oldest items until the serialized size fits the
// target ratio. At least one item always survives.
func (s *Summarizer) truncate(items []item.Item, originalSize int) []item.Item {
	target := int(float64(originalSize) * s.targetRatio)
	kept := items
	for len(kept) > 1 && item.SerializeAll(kept) > target {
		kept = kept[1:]
	}
	out := make([]item.Item, len(kept))
	copy(out, kept)
	return out
}

// selective first drops reasoning traces and completed call/output pairs,
// then falls back to oldest-first truncation if still over target.
// Orphans are never created: a call is only dropped together with its output.
func (s *Summarizer) selective(items []item.Item, originalSize int) []item.Item {
	calls := make(map[string]bool)
	outputs := make(map[string]bool)
	for i := range items {
		switch items[i].Type {
		case item.TypeFunctionCall:
			calls[items[i].CallID] = true
		case item.TypeFunctionCallOutput:
			outputs[items[i].CallID] = true
		case item.TypeMessage, item.TypeReasoning:
		}
	}

	kept := item.Curate(items, func(it *item.Item) bool {
		switch it.Type {
		case item.TypeReasoning:
			return false
		case item.TypeFunctionCall, item.TypeFunctionCallOutput:
			// Drop only completed pairs.
			return !(calls[it.CallID] && outputs[it.CallID])
		default:
			return true
		}
	})

	target := int(float64(originalSize) * s.targetRatio)
	for len(kept) > 1 && item.SerializeAll(kept) > target {
		kept = kept[1:]
	}
	return kept
}
