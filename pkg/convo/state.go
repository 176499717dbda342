// Package convo implements the conversation store: a bounded in-memory map
// of conversation state with per-id locking, token-budget-triggered
// compression, curation, health auditing, capacity-based eviction, and
// periodic reaping of abandoned conversations.
package convo

import (
	"time"

	"parley/pkg/compression"
	"parley/pkg/config"
	"parley/pkg/item"
)

const (
	// MaxMessagesPerConversation is the hard cap on stored items per
	// conversation, enforced after every update.
	MaxMessagesPerConversation = 500

	// MaxConversations is the store capacity; create evicts before
	// inserting so the bound holds after every create.
	MaxConversations = 1000

	// TrimFraction of the oldest items is dropped per fallback trim pass
	// when a conversation is over the hard cap.
	TrimFraction = 0.10

	// EvictFraction of conversations (least recently updated first) is
	// removed by one batch eviction.
	EvictFraction = 0.20

	// ReapRetention is how long an empty conversation may sit untouched
	// before periodic cleanup removes it.
	ReapRetention = 24 * time.Hour
)

// Metrics tracks per-conversation activity. Counters only grow; TokenUsage
// is recomputed after compression.
type Metrics struct {
	TokenUsage        compression.TokenUsage `json:"token_usage"`
	TurnCount         int                    `json:"turn_count"`
	ToolCallCount     int                    `json:"tool_call_count"`
	CompressionEvents int                    `json:"compression_events"`
	LastCompressionAt *time.Time             `json:"last_compression_at,omitempty"`
}

// ConversationState is the stored record for one conversation id.
type ConversationState struct {
	ID             string      `json:"id"`
	Messages       []item.Item `json:"messages"`
	LastResponseID string      `json:"last_response_id,omitempty"`
	Metrics        Metrics     `json:"metrics"`

	// Compression is the config snapshot captured at creation time; each
	// conversation keeps its own copy.
	Compression config.CompressionConfig `json:"compression"`

	Health item.Health `json:"health"`

	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is the eviction recency key.
	UpdatedAt time.Time `json:"updated_at"`

	// OriginalMessageCount is the item count at first write, kept so a
	// later reader can tell compression ever ran.
	OriginalMessageCount int `json:"original_message_count"`
}

// clone returns a copy safe for callers to read while writers keep going.
func (s *ConversationState) clone() ConversationState {
	out := *s
	out.Messages = append([]item.Item(nil), s.Messages...)
	out.Health.Issues = append([]string(nil), s.Health.Issues...)
	if s.Metrics.LastCompressionAt != nil {
		t := *s.Metrics.LastCompressionAt
		out.Metrics.LastCompressionAt = &t
	}
	return out
}

// Compressed reports whether this conversation was ever compacted below
// its first-write size.
func (s *ConversationState) Compressed() bool {
	return s.Metrics.CompressionEvents > 0
}

// countToolCalls recomputes the tool activity counter from the live
// message sequence.
func countToolCalls(items []item.Item) int {
	n := 0
	for i := range items {
		switch items[i].Type {
		case item.TypeFunctionCall, item.TypeFunctionCallOutput:
			n++
		case item.TypeMessage, item.TypeReasoning:
		}
	}
	return n
}
