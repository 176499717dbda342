// Package compression implements the compression side of the conversation
// state manager: token accounting, the compression service that shrinks a
// message sequence, and the gateway that decides when to invoke it and
// validates what comes back.
package compression

import (
	"context"
	"errors"

	"parley/pkg/item"
)

// ErrCompressionFailed indicates the service could not produce an
// acceptable compressed sequence.
var ErrCompressionFailed = errors.New("compression failed")

// Result is the outcome of a successful compression.
type Result struct {
	// Items is the compacted sequence; never longer than the input.
	Items []item.Item
	// Ratio is size(compressed)/size(original) by serialized bytes.
	Ratio float64
}

// Service is the external compression collaborator. The store functions in
// a degraded mode when none is configured: estimated token counts, no
// automatic compression, and explicit compress/curate calls failing with a
// service-unavailable error.
type Service interface {
	// AnalyzeTokenUsage computes the token footprint of a message sequence.
	AnalyzeTokenUsage(ctx context.Context, items []item.Item) (TokenUsage, error)

	// CompressConversation shrinks a message sequence using the named
	// strategy (summarize, truncate, selective).
	CompressConversation(ctx context.Context, items []item.Item, strategy string) (Result, error)

	// CurateItems filters a sequence down to structurally valid items.
	CurateItems(items []item.Item) []item.Item

	// ValidateHealth reports the structural integrity of a sequence.
	ValidateHealth(items []item.Item) item.Health
}
