package keylock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireUncontended(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Acquire("c1"))
	assert.Equal(t, 1, r.Len())

	r.Release("c1")
	assert.Equal(t, 0, r.Len(), "registry entry should be torn down on release")
}

func TestReleaseUnheldIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Release("never-acquired")
	assert.Equal(t, 0, r.Len())
}

func TestAcquireBlocksUntilRelease(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Acquire("c1"))

	acquired := make(chan struct{})
	go func() {
		if err := r.Acquire("c1"); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire should block while lock is held")
	case <-time.After(50 * time.Millisecond):
	}

	r.Release("c1")
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter was not unblocked by release")
	}
	r.Release("c1")
}

func TestAcquireTimeoutFailsWaiterNotHolder(t *testing.T) {
	r := NewRegistryWithTimeout(50 * time.Millisecond)
	require.NoError(t, r.Acquire("c1"))

	err := r.Acquire("c1")
	assert.ErrorIs(t, err, ErrTimeout)

	// The holder is unaffected and can still release normally.
	r.Release("c1")
	assert.Equal(t, 0, r.Len())
}

func TestAcquireContextCanceled(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Acquire("c1"))
	defer r.Release("c1")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.AcquireContext(ctx, "c1") }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("canceled waiter never returned")
	}
}

func TestFIFOOrdering(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Acquire("c1"))

	const waiters = 5
	var mu sync.Mutex
	var order []int
	started := make(chan struct{}, waiters)
	done := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			started <- struct{}{}
			// Stagger enqueue so queue order matches n.
			if err := r.Acquire("c1"); err != nil {
				return
			}
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			r.Release("c1")
		}(i)
		<-started
		time.Sleep(10 * time.Millisecond) // let the goroutine enqueue
	}

	go func() { wg.Wait(); close(done) }()
	r.Release("c1")

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("waiters did not drain")
	}

	require.Len(t, order, waiters)
	for i := 0; i < waiters; i++ {
		assert.Equal(t, i, order[i], "waiters must be released in FIFO order")
	}
}

func TestForceReleaseHandsOff(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Acquire("c1"))

	acquired := make(chan struct{})
	go func() {
		if err := r.Acquire("c1"); err == nil {
			close(acquired)
		}
	}()
	time.Sleep(20 * time.Millisecond)

	r.ForceRelease("c1")
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("force release did not unblock waiter")
	}
	r.Release("c1")
	assert.Equal(t, 0, r.Len())
}

func TestForceReleaseAll(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Acquire("a"))
	require.NoError(t, r.Acquire("b"))
	require.NoError(t, r.Acquire("c"))

	r.ForceReleaseAll()
	assert.Equal(t, 0, r.Len())
}

func TestWithReleasesOnError(t *testing.T) {
	r := NewRegistry()
	sentinel := errors.New("boom")

	err := r.With("c1", func() error { return sentinel })
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 0, r.Len(), "lock must be released after fn error")
}

func TestIndependentKeysDoNotContend(t *testing.T) {
	r := NewRegistryWithTimeout(100 * time.Millisecond)
	require.NoError(t, r.Acquire("a"))
	require.NoError(t, r.Acquire("b"))
	r.Release("a")
	r.Release("b")
}

// Serialization stress: N concurrent guarded increments on one key must
// produce exactly N with no lost updates.
func TestSerializationStress(t *testing.T) {
	r := NewRegistryWithTimeout(30 * time.Second)

	const n = 200
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.With("hot", func() error {
				counter++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, n, counter)
	assert.Equal(t, 0, r.Len())
}
