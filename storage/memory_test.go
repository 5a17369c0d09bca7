package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGet(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "session", []byte("abc"), 0))

	val, found, err := s.Get(ctx, "session")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte("abc"), val)

	_, found, err = s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStoreOverwrite(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("one"), 0))
	require.NoError(t, s.Set(ctx, "k", []byte("two"), 0))

	val, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("two"), val)
}

func TestMemoryStoreDelete(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", []byte("v"), 0))
	require.NoError(t, s.Delete(ctx, "k"))

	_, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting an absent key is not an error.
	assert.NoError(t, s.Delete(ctx, "missing"))
}

// Expired keys must be invisible on Get even before the janitor sweeps.
func TestMemoryStoreTTLExpiry(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "short", []byte("v"), 50*time.Millisecond))

	_, found, err := s.Get(ctx, "short")
	require.NoError(t, err)
	assert.True(t, found, "entry should be readable before expiry")

	time.Sleep(80 * time.Millisecond)

	_, found, err = s.Get(ctx, "short")
	require.NoError(t, err)
	assert.False(t, found, "entry should be gone after its TTL")
}

func TestMemoryStoreQueuePriorityOrder(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, "tasks", []byte("low"), 1))
	require.NoError(t, s.Enqueue(ctx, "tasks", []byte("high"), 5))
	require.NoError(t, s.Enqueue(ctx, "tasks", []byte("mid"), 3))

	for _, want := range []string{"high", "mid", "low"} {
		payload, found, err := s.Dequeue(ctx, "tasks")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, want, string(payload))
	}

	_, found, err := s.Dequeue(ctx, "tasks")
	require.NoError(t, err)
	assert.False(t, found, "queue should be empty")
}

// Equal priorities must dequeue in insertion order.
func TestMemoryStoreQueueFIFOWithinPriority(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	for _, p := range []string{"first", "second", "third"} {
		require.NoError(t, s.Enqueue(ctx, "tasks", []byte(p), 7))
	}

	for _, want := range []string{"first", "second", "third"} {
		payload, found, err := s.Dequeue(ctx, "tasks")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, want, string(payload))
	}
}

func TestMemoryStoreQueuesAreIndependent(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.Enqueue(ctx, "a", []byte("for-a"), 1))
	require.NoError(t, s.Enqueue(ctx, "b", []byte("for-b"), 9))

	payload, found, err := s.Dequeue(ctx, "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "for-a", string(payload))
}

func TestMemoryStoreAvailable(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	assert.True(t, s.Available())
}
