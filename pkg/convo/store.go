package convo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"parley/pkg/compression"
	"parley/pkg/config"
	"parley/pkg/item"
	"parley/pkg/keylock"
	"parley/pkg/logx"
	"parley/pkg/metrics"
)

// Store owns the map of conversation id to state. Mutating operations
// serialize per id through the lock registry; Get and List are lock-free
// for callers (they briefly take the store's read lock and return copies).
//
// The store runs degraded without a compression gateway: token counts are
// estimated, updates never compress, and the explicit compress/curate/health
// entry points fail with ErrServiceUnavailable.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*ConversationState

	locks    *keylock.Registry
	gateway  *compression.Gateway // nil in degraded mode
	cfg      config.Config
	logger   *logx.Logger
	recorder *metrics.Recorder

	now func() time.Time
}

// NewStore builds a store from process configuration. gateway and recorder
// may be nil.
func NewStore(cfg config.Config, gateway *compression.Gateway, recorder *metrics.Recorder) *Store {
	return &Store{
		conversations: make(map[string]*ConversationState),
		locks:         keylock.NewRegistry(),
		gateway:       gateway,
		cfg:           cfg,
		logger:        logx.NewLogger("convo"),
		recorder:      recorder,
		now:           time.Now,
	}
}

// Create inserts a freshly seeded conversation and returns a copy of it.
// An empty id asks the store to generate one. When the store is at
// capacity, the least recently updated fifth is evicted first so the
// capacity bound holds when Create returns. Creating an id that already
// exists returns the existing state unchanged.
func (s *Store) Create(id string) ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	if existing, ok := s.conversations[id]; ok {
		return existing.clone()
	}

	if len(s.conversations) >= MaxConversations {
		s.evictBatchLocked()
	}

	now := s.now()
	st := &ConversationState{
		ID:          id,
		Messages:    []item.Item{},
		Compression: s.cfg.Compression,
		Health:      item.HealthyDefault(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.conversations[id] = st
	s.recorder.SetConversations(len(s.conversations))
	s.logger.Debug("created conversation %s (%d stored)", id, len(s.conversations))
	return st.clone()
}

// Get returns a copy of the conversation, or ok=false when absent.
// Absence is not an error.
func (s *Store) Get(id string) (ConversationState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.conversations[id]
	if !ok {
		return ConversationState{}, false
	}
	return st.clone(), true
}

// List returns copies of all conversations, most recently updated first.
func (s *Store) List() []ConversationState {
	s.mu.RLock()
	out := make([]ConversationState, 0, len(s.conversations))
	for _, st := range s.conversations {
		out = append(out, st.clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

// Len returns the number of stored conversations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// Update appends items to a conversation under its lock: curation,
// append, metrics, threshold-triggered compression, and the hard-cap trim
// fallback, in that order. Compression failures are logged and swallowed;
// the caller only ever sees ErrNotFound or ErrLockTimeout.
func (s *Store) Update(ctx context.Context, id string, items []item.Item, responseID string) error {
	if err := s.acquire(ctx, id); err != nil {
		s.recorder.ObserveUpdate(false)
		return err
	}
	defer s.locks.Release(id)

	msgs, st, ok := s.snapshotMessages(id)
	if !ok {
		s.recorder.ObserveUpdate(false)
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}

	valid := items
	if s.cfg.CurationEnabled {
		valid = item.CurateValid(items)
		s.recorder.AddCuratedItems(len(items) - len(valid))
	}
	msgs = append(msgs, valid...)

	usage := s.usageFor(ctx, msgs)
	compressed := false
	var lastCompressionAt time.Time

	if s.gateway != nil && s.gateway.ShouldCompress(usage, st.Compression) {
		res, err := s.gateway.Compress(ctx, msgs, st.Compression.Strategy, st.Compression)
		if err != nil {
			s.logger.Warn("compression failed for %s, continuing uncompressed: %v", id, err)
			s.recorder.ObserveCompression(st.Compression.Strategy, false, 0)
		} else {
			after := s.usageFor(ctx, res.Items)
			s.recorder.ObserveCompression(st.Compression.Strategy, true, usage.Total-after.Total)
			s.logger.Info("compressed %s: %d -> %d items (ratio %.3f)",
				id, len(msgs), len(res.Items), res.Ratio)
			msgs = res.Items
			usage = after
			compressed = true
			lastCompressionAt = s.now()
		}
	}

	msgs, trimmed := trimToCap(msgs)
	if trimmed {
		s.recorder.IncTrim()
		s.logger.Info("trimmed %s to %d items", id, len(msgs))
		usage = s.usageFor(ctx, msgs)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	live, ok := s.conversations[id]
	if !ok {
		// Deleted or evicted while we worked; nothing to mutate.
		s.recorder.ObserveUpdate(false)
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	if live.OriginalMessageCount == 0 && len(msgs) > 0 {
		live.OriginalMessageCount = len(msgs)
	}
	live.Messages = msgs
	live.Metrics.TurnCount++
	live.Metrics.ToolCallCount = countToolCalls(msgs)
	live.Metrics.TokenUsage = usage
	if compressed {
		live.Metrics.CompressionEvents++
		live.Metrics.LastCompressionAt = &lastCompressionAt
	}
	if responseID != "" {
		live.LastResponseID = responseID
	}
	live.UpdatedAt = s.now()
	s.recorder.ObserveUpdate(true)
	return nil
}

// Delete removes a conversation. Idempotent; any held or pending lock for
// the id is force-released so the registry does not leak entries for a
// vanished conversation.
func (s *Store) Delete(id string) {
	s.locks.ForceRelease(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[id]; !ok {
		return
	}
	delete(s.conversations, id)
	s.recorder.SetConversations(len(s.conversations))
	s.logger.Debug("deleted conversation %s", id)
}

// Clear removes every conversation and force-releases all locks.
func (s *Store) Clear() {
	s.locks.ForceReleaseAll()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = make(map[string]*ConversationState)
	s.recorder.SetConversations(0)
	s.logger.Info("cleared all conversations")
}

// CompressConversation forces compression regardless of the threshold,
// using the supplied strategy or the conversation's configured one when
// empty. Unlike Update, gateway errors escape to the caller.
func (s *Store) CompressConversation(ctx context.Context, id, strategy string) error {
	if s.gateway == nil {
		return fmt.Errorf("compress %s: %w", id, ErrServiceUnavailable)
	}
	if err := s.acquire(ctx, id); err != nil {
		return err
	}
	defer s.locks.Release(id)

	msgs, st, ok := s.snapshotMessages(id)
	if !ok {
		return fmt.Errorf("compress %s: %w", id, ErrNotFound)
	}
	if strategy == "" {
		strategy = st.Compression.Strategy
	}

	before := s.usageFor(ctx, msgs)
	res, err := s.gateway.Compress(ctx, msgs, strategy, st.Compression)
	if err != nil {
		s.recorder.ObserveCompression(strategy, false, 0)
		return fmt.Errorf("compress %s: %w", id, err)
	}
	usage := s.usageFor(ctx, res.Items)
	s.recorder.ObserveCompression(strategy, true, before.Total-usage.Total)
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	live, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("compress %s: %w", id, ErrNotFound)
	}
	live.Messages = res.Items
	live.Metrics.CompressionEvents++
	live.Metrics.LastCompressionAt = &now
	live.Metrics.TokenUsage = usage
	live.Metrics.ToolCallCount = countToolCalls(res.Items)
	live.UpdatedAt = now
	s.logger.Info("force-compressed %s with %s (ratio %.3f)", id, strategy, res.Ratio)
	return nil
}

// CurateConversation filters the stored messages down to valid items and
// revalidates health.
func (s *Store) CurateConversation(ctx context.Context, id string) error {
	if s.gateway == nil {
		return fmt.Errorf("curate %s: %w", id, ErrServiceUnavailable)
	}
	if err := s.acquire(ctx, id); err != nil {
		return err
	}
	defer s.locks.Release(id)

	msgs, _, ok := s.snapshotMessages(id)
	if !ok {
		return fmt.Errorf("curate %s: %w", id, ErrNotFound)
	}

	svc := s.gateway.Service()
	curated := svc.CurateItems(msgs)
	s.recorder.AddCuratedItems(len(msgs) - len(curated))
	health := svc.ValidateHealth(curated)

	s.mu.Lock()
	defer s.mu.Unlock()
	live, ok := s.conversations[id]
	if !ok {
		return fmt.Errorf("curate %s: %w", id, ErrNotFound)
	}
	live.Messages = curated
	live.Metrics.ToolCallCount = countToolCalls(curated)
	live.Health = health
	live.UpdatedAt = s.now()
	return nil
}

// ValidateConversationHealth audits the stored messages for orphaned tool
// calls, persists the result on the state, and returns it.
func (s *Store) ValidateConversationHealth(ctx context.Context, id string) (item.Health, error) {
	if s.gateway == nil {
		return item.Health{}, fmt.Errorf("health %s: %w", id, ErrServiceUnavailable)
	}
	if err := s.acquire(ctx, id); err != nil {
		return item.Health{}, err
	}
	defer s.locks.Release(id)

	msgs, _, ok := s.snapshotMessages(id)
	if !ok {
		return item.Health{}, fmt.Errorf("health %s: %w", id, ErrNotFound)
	}
	health := s.gateway.Service().ValidateHealth(msgs)

	s.mu.Lock()
	defer s.mu.Unlock()
	if live, ok := s.conversations[id]; ok {
		live.Health = health
	}
	return health, nil
}

// AnalyzeTokenUsage computes the token footprint of a caller-supplied
// message snapshot. Without a gateway the serialized-length/4 estimate is
// used. Pure; takes no locks.
func (s *Store) AnalyzeTokenUsage(ctx context.Context, msgs []item.Item) (compression.TokenUsage, error) {
	if s.gateway == nil {
		return compression.EstimateUsage(msgs), nil
	}
	return s.gateway.AnalyzeTokenUsage(ctx, msgs)
}

// acquire takes the per-id lock, recording timeouts.
func (s *Store) acquire(ctx context.Context, id string) error {
	if err := s.locks.AcquireContext(ctx, id); err != nil {
		if errors.Is(err, keylock.ErrTimeout) {
			s.recorder.IncLockTimeout()
		}
		return fmt.Errorf("lock %s: %w", id, err)
	}
	return nil
}

// snapshotMessages copies the live message slice and the state's scalar
// fields so the caller can work outside the store lock. Mutators still
// hold the per-id lock, so no one else writes this id meanwhile.
func (s *Store) snapshotMessages(id string) ([]item.Item, ConversationState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.conversations[id]
	if !ok {
		return nil, ConversationState{}, false
	}
	msgs := append([]item.Item(nil), st.Messages...)
	return msgs, st.clone(), true
}

// usageFor counts tokens through the gateway when present, estimating
// otherwise. Counting never fails an update.
func (s *Store) usageFor(ctx context.Context, msgs []item.Item) compression.TokenUsage {
	if s.gateway == nil {
		return compression.EstimateUsage(msgs)
	}
	usage, err := s.gateway.AnalyzeTokenUsage(ctx, msgs)
	if err != nil {
		s.logger.Warn("token analysis failed, estimating: %v", err)
		return compression.EstimateUsage(msgs)
	}
	return usage
}

// trimToCap drops the oldest TrimFraction of items per pass until the
// sequence fits the hard cap. Deterministic and order-preserving.
func trimToCap(msgs []item.Item) ([]item.Item, bool) {
	trimmed := false
	for len(msgs) > MaxMessagesPerConversation {
		drop := int(float64(len(msgs)) * TrimFraction)
		if drop < 1 {
			drop = 1
		}
		msgs = msgs[drop:]
		trimmed = true
	}
	if !trimmed {
		return msgs, false
	}
	out := make([]item.Item, len(msgs))
	copy(out, msgs)
	return out, true
}

// Stats is a point-in-time summary of the whole store.
type Stats struct {
	Conversations     int        `json:"conversations"`
	TotalMessages     int        `json:"total_messages"`
	TotalTokens       int        `json:"total_tokens"`
	CompressionEvents int        `json:"compression_events"`
	OldestUpdatedAt   *time.Time `json:"oldest_updated_at,omitempty"`
}

// Stats summarizes the store for logs and status surfaces.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Conversations: len(s.conversations)}
	for _, c := range s.conversations {
		st.TotalMessages += len(c.Messages)
		st.TotalTokens += c.Metrics.TokenUsage.Total
		st.CompressionEvents += c.Metrics.CompressionEvents
		if st.OldestUpdatedAt == nil || c.UpdatedAt.Before(*st.OldestUpdatedAt) {
			t := c.UpdatedAt
			st.OldestUpdatedAt = &t
		}
	}
	return st
}
