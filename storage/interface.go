package storage

import (
	"context"
	"time"
)

// Store defines the cluster store: a namespaced, TTL-aware key/value cache
// plus priority task queues. Implementations must be safe for concurrent use.
type Store interface {
	// Key-Value operations. Absent or expired keys are reported as not
	// found, never as an error.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error

	// Queue operations. Dequeue returns the highest-priority entry;
	// equal priority falls back to insertion order.
	Enqueue(ctx context.Context, queue string, payload []byte, priority int64) error
	Dequeue(ctx context.Context, queue string) ([]byte, bool, error)

	// Available reports whether the store can serve requests. The
	// in-memory fallback is always available.
	Available() bool

	// Lifecycle
	Close() error
}

// QueueEntry is the persisted shape of a queued task.
type QueueEntry struct {
	Payload   []byte    `json:"payload"`
	Priority  int64     `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
}

// Key namespaces shared by all backends so processes pointed at the same
// store observe each other's writes.
const (
	dataPrefix  = "mesh:cluster:data:"
	queuePrefix = "mesh:cluster:queue:"
)

func dataKey(key string) string {
	return dataPrefix + key
}

func queueKey(queue string) string {
	return queuePrefix + queue
}
