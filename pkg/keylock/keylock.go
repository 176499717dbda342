// Package keylock provides a registry of per-key advisory locks with
// bounded wait time. Waiters queue in FIFO order; a waiter that cannot
// acquire the lock within the timeout fails with ErrTimeout and must not
// touch the guarded state. Registry entries are created lazily on first
// acquire and torn down when the last holder releases, so the registry
// never accumulates state for keys that are no longer contended.
package keylock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultTimeout bounds how long an Acquire call may wait for a contended key.
const DefaultTimeout = 5 * time.Second

// ErrTimeout is returned when a waiter gives up on a contended key.
var ErrTimeout = errors.New("lock acquisition timed out")

// Registry serializes operations per key.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
	timeout time.Duration
}

type lockEntry struct {
	held  bool
	queue []chan struct{} // FIFO; a closed channel means the lock was handed off
}

// NewRegistry returns a registry with the default acquisition timeout.
func NewRegistry() *Registry {
	return NewRegistryWithTimeout(DefaultTimeout)
}

// NewRegistryWithTimeout returns a registry with a custom acquisition timeout.
func NewRegistryWithTimeout(timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Registry{
		entries: make(map[string]*lockEntry),
		timeout: timeout,
	}
}

// Acquire blocks until the key's lock is free or the registry timeout
// elapses. Acquisition for an uncontended key succeeds immediately.
func (r *Registry) Acquire(id string) error {
	return r.AcquireContext(context.Background(), id)
}

// AcquireContext is Acquire with caller-controlled cancellation. The
// registry timeout still applies.
func (r *Registry) AcquireContext(ctx context.Context, id string) error {
	r.mu.Lock()
	e := r.entries[id]
	if e == nil {
		e = &lockEntry{}
		r.entries[id] = e
	}
	if !e.held {
		e.held = true
		r.mu.Unlock()
		return nil
	}

	ch := make(chan struct{})
	e.queue = append(e.queue, ch)
	r.mu.Unlock()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return nil
	case <-timer.C:
		if r.abandon(id, ch) {
			return ErrTimeout
		}
		// Handoff raced with the timer: the lock is ours.
		return nil
	case <-ctx.Done():
		if r.abandon(id, ch) {
			return ctx.Err()
		}
		// Granted while canceling; give it back so the queue keeps moving.
		r.Release(id)
		return ctx.Err()
	}
}

// abandon removes a waiter from the key's queue. It returns false when the
// waiter is no longer queued, which means the lock was already handed off.
func (r *Registry) abandon(id string, ch chan struct{}) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[id]
	if e == nil {
		return false
	}
	for i, w := range e.queue {
		if w == ch {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			return true
		}
	}
	return false
}

// Release relinquishes the key's lock, unblocking the next queued waiter.
// When nothing is queued the registry entry is removed entirely.
func (r *Registry) Release(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releaseLocked(id)
}

func (r *Registry) releaseLocked(id string) {
	e := r.entries[id]
	if e == nil || !e.held {
		return
	}
	if len(e.queue) > 0 {
		next := e.queue[0]
		e.queue = e.queue[1:]
		close(next) // hand off; entry stays held
		return
	}
	delete(r.entries, id)
}

// ForceRelease revokes the key's lock regardless of who holds it. Used when
// the guarded resource is being deleted or evicted: the next waiter (if any)
// acquires a lock over state that no longer exists and will observe that
// downstream.
func (r *Registry) ForceRelease(id string) {
	r.Release(id)
}

// ForceReleaseAll revokes every held lock. Pending waiters receive the lock
// in queue order as usual.
func (r *Registry) ForceReleaseAll() {
	r.mu.Lock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Release(id)
	}
}

// Len returns the number of keys with live registry entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// With runs fn while holding the key's lock, releasing on every exit path.
func (r *Registry) With(id string, fn func() error) error {
	if err := r.Acquire(id); err != nil {
		return err
	}
	defer r.Release(id)
	return fn()
}

// WithContext is With under caller-controlled cancellation.
func (r *Registry) WithContext(ctx context.Context, id string, fn func() error) error {
	if err := r.AcquireContext(ctx, id); err != nil {
		return err
	}
	defer r.Release(id)
	return fn()
}
