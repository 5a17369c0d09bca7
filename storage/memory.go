package storage

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore provides an in-process store with TTL and priority queues.
// It is the fallback backend when no durable store can be opened, and is
// also handy in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string]memEntry
	queues map[string][]QueueEntry
	stop   chan struct{}
	once   sync.Once
}

type memEntry struct {
	val       []byte
	expiresAt time.Time // zero means no expiry
}

// NewMemoryStore creates an in-memory store and starts its expiry janitor.
func NewMemoryStore() *MemoryStore {
	m := &MemoryStore{
		data:   make(map[string]memEntry),
		queues: make(map[string][]QueueEntry),
		stop:   make(chan struct{}),
	}
	go m.janitor()
	return m
}

func (m *MemoryStore) Close() error {
	m.once.Do(func() { close(m.stop) })
	return nil
}

// Available always reports true: the in-memory fallback cannot be unreachable.
func (m *MemoryStore) Available() bool { return true }

func (m *MemoryStore) janitor() {
	t := time.NewTicker(1 * time.Second)
	defer t.Stop()
	for {
		select {
		case <-m.stop:
			return
		case <-t.C:
			now := time.Now()
			m.mu.Lock()
			for k, e := range m.data {
				if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
					delete(m.data, k)
				}
			}
			m.mu.Unlock()
		}
	}
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	m.data[dataKey(key)] = memEntry{val: append([]byte(nil), value...), expiresAt: exp}
	return nil
}

// Get returns not-found for expired entries even if the janitor has not run.
func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	k := dataKey(key)
	m.mu.RLock()
	e, ok := m.data[k]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		m.mu.Lock()
		delete(m.data, k)
		m.mu.Unlock()
		return nil, false, nil
	}
	return append([]byte(nil), e.val...), true, nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, dataKey(key))
	return nil
}

func (m *MemoryStore) Enqueue(ctx context.Context, queue string, payload []byte, priority int64) error {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	k := queueKey(queue)
	entries := append(m.queues[k], QueueEntry{
		Payload:   append([]byte(nil), payload...),
		Priority:  priority,
		CreatedAt: time.Now(),
	})
	// Stable sort keeps insertion order among equal priorities.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Priority > entries[j].Priority
	})
	m.queues[k] = entries
	return nil
}

func (m *MemoryStore) Dequeue(ctx context.Context, queue string) ([]byte, bool, error) {
	_ = ctx
	m.mu.Lock()
	defer m.mu.Unlock()
	k := queueKey(queue)
	entries := m.queues[k]
	if len(entries) == 0 {
		return nil, false, nil
	}
	head := entries[0]
	m.queues[k] = entries[1:]
	return head.Payload, true, nil
}
