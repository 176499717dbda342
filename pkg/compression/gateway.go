package compression

import (
	"context"
	"fmt"

	"parley/pkg/config"
	"parley/pkg/item"
	"parley/pkg/logx"
)

// Gateway fronts the compression service: it owns the when (threshold
// policy against the process token budget) and sanity-checks the what
// (the service result) before the store applies it.
type Gateway struct {
	service   Service
	maxTokens int
	logger    *logx.Logger
}

// NewGateway wraps a compression service. maxTokens is the process-level
// per-conversation token budget.
func NewGateway(service Service, maxTokens int) *Gateway {
	return &Gateway{
		service:   service,
		maxTokens: maxTokens,
		logger:    logx.NewLogger("compression-gateway"),
	}
}

// ShouldCompress reports whether usage has crossed the configured
// threshold fraction of the token budget.
func (g *Gateway) ShouldCompress(usage TokenUsage, cfg config.CompressionConfig) bool {
	if !cfg.Enabled || g.maxTokens <= 0 {
		return false
	}
	return float64(usage.Total)/float64(g.maxTokens) >= cfg.Threshold
}

// Compress invokes the service and validates its result: the compacted
// sequence may not be longer than the original, and the reported ratio must
// land in (0, maxCompressionRatio]. Anything else is a service error, never
// silently accepted.
func (g *Gateway) Compress(ctx context.Context, items []item.Item, strategy string, cfg config.CompressionConfig) (Result, error) {
	res, err := g.service.CompressConversation(ctx, items, strategy)
	if err != nil {
		return Result{}, err
	}
	if len(res.Items) > len(items) {
		return Result{}, fmt.Errorf("%w: service grew the conversation from %d to %d items",
			ErrCompressionFailed, len(items), len(res.Items))
	}
	if res.Ratio <= 0 || res.Ratio > cfg.MaxCompressionRatio {
		return Result{}, fmt.Errorf("%w: compression ratio %.3f outside (0, %.3f]",
			ErrCompressionFailed, res.Ratio, cfg.MaxCompressionRatio)
	}
	g.logger.Debug("compressed %d items to %d (ratio %.3f, strategy %s)",
		len(items), len(res.Items), res.Ratio, strategy)
	return res, nil
}

// AnalyzeTokenUsage delegates token accounting to the service.
func (g *Gateway) AnalyzeTokenUsage(ctx context.Context, items []item.Item) (TokenUsage, error) {
	return g.service.AnalyzeTokenUsage(ctx, items)
}

// Service exposes the wrapped collaborator for curation and health calls.
func (g *Gateway) Service() Service {
	return g.service
}

// MaxTokens returns the per-conversation token budget.
func (g *Gateway) MaxTokens() int {
	return g.maxTokens
}
