package convo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEvictsAtCapacity(t *testing.T) {
	s := newDegradedStore(t)

	for i := 0; i <= MaxConversations; i++ {
		s.Create(fmt.Sprintf("t-%d", i))
		assert.LessOrEqual(t, s.Len(), MaxConversations)
	}

	// The 1001st create evicted the least recently updated fifth.
	_, ok := s.Get("t-0")
	assert.False(t, ok, "oldest conversation evicted")
	_, ok = s.Get(fmt.Sprintf("t-%d", MaxConversations))
	assert.True(t, ok, "newest conversation present")

	evicted := int(float64(MaxConversations) * EvictFraction)
	assert.Equal(t, MaxConversations-evicted+1, s.Len())
}

func TestEvictionPrefersStale(t *testing.T) {
	s := newDegradedStore(t)

	for i := 0; i < MaxConversations; i++ {
		s.Create(fmt.Sprintf("t-%d", i))
	}
	// Touch the oldest so it survives eviction.
	require.NoError(t, s.Update(context.Background(), "t-0", messages(1), ""))

	s.Create("fresh")

	_, ok := s.Get("t-0")
	assert.True(t, ok, "recently updated conversation survives")
	_, ok = s.Get("t-1")
	assert.False(t, ok, "staleness decides eviction, not creation order")
	_, ok = s.Get("fresh")
	assert.True(t, ok)
}

func TestEvictionRevokesLocks(t *testing.T) {
	s := newDegradedStore(t)

	for i := 0; i < MaxConversations; i++ {
		s.Create(fmt.Sprintf("t-%d", i))
	}
	s.Create("fresh")

	// A mutation against an evicted id acquires a fresh lock and then
	// finds no backing conversation.
	err := s.Update(context.Background(), "t-0", messages(1), "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPerformPeriodicCleanupReapsEmpty(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(testConfig(), nil, nil)
	s.now = clock.Now

	s.Create("old-empty")
	s.Create("old-active")
	require.NoError(t, s.Update(context.Background(), "old-active", messages(2), ""))

	clock.Advance(ReapRetention + time.Hour)
	s.Create("fresh-empty")

	reaped := s.PerformPeriodicCleanup()
	assert.Equal(t, 1, reaped)

	_, ok := s.Get("old-empty")
	assert.False(t, ok, "abandoned empty conversation reaped")
	_, ok = s.Get("old-active")
	assert.True(t, ok, "conversations with messages never reaped by age")
	_, ok = s.Get("fresh-empty")
	assert.True(t, ok, "retention window respected")
}

func TestPerformPeriodicCleanupIdempotent(t *testing.T) {
	clock := newFakeClock()
	s := NewStore(testConfig(), nil, nil)
	s.now = clock.Now

	s.Create("old-empty")
	clock.Advance(ReapRetention + time.Hour)

	assert.Equal(t, 1, s.PerformPeriodicCleanup())
	assert.Equal(t, 0, s.PerformPeriodicCleanup())
}
