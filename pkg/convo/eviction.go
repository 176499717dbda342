package convo

import (
	"sort"
)

// evictBatchLocked removes the least recently updated EvictFraction of
// conversations. Caller holds s.mu. Each victim's lock registry entry is
// revoked together with its map entry, so a stale waiter that later gets
// the lock finds no backing conversation and fails with ErrNotFound.
func (s *Store) evictBatchLocked() {
	n := int(float64(len(s.conversations)) * EvictFraction)
	if n < 1 {
		n = 1
	}

	victims := make([]*ConversationState, 0, len(s.conversations))
	for _, st := range s.conversations {
		victims = append(victims, st)
	}
	sort.Slice(victims, func(i, j int) bool {
		if !victims[i].UpdatedAt.Equal(victims[j].UpdatedAt) {
			return victims[i].UpdatedAt.Before(victims[j].UpdatedAt)
		}
		return victims[i].ID < victims[j].ID
	})
	if n > len(victims) {
		n = len(victims)
	}

	for _, st := range victims[:n] {
		s.locks.ForceRelease(st.ID)
		delete(s.conversations, st.ID)
	}
	s.recorder.AddEvictions(n)
	s.recorder.SetConversations(len(s.conversations))
	s.logger.Info("evicted %d conversations (%d remain)", n, len(s.conversations))
}

// PerformPeriodicCleanup removes conversations that have sat empty past
// the retention window. Conversations with messages are never reaped by
// age alone. Idempotent; meant to be driven by an external ticker.
// Returns the number of conversations removed.
func (s *Store) PerformPeriodicCleanup() int {
	cutoff := s.now().Add(-ReapRetention)

	s.mu.Lock()
	defer s.mu.Unlock()

	var reaped []string
	for id, st := range s.conversations {
		if len(st.Messages) == 0 && st.UpdatedAt.Before(cutoff) {
			reaped = append(reaped, id)
		}
	}
	for _, id := range reaped {
		s.locks.ForceRelease(id)
		delete(s.conversations, id)
	}
	if len(reaped) > 0 {
		s.recorder.AddReaps(len(reaped))
		s.recorder.SetConversations(len(s.conversations))
		s.logger.Info("reaped %d abandoned conversations (%d remain)",
			len(reaped), len(s.conversations))
	}
	return len(reaped)
}
