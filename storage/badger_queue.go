package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

// Queue entries are stored under
//
//	mesh:cluster:queue:<name>:<inverted priority>:<seq>:<uuid>
//
// The priority is mapped order-preservingly onto uint64 and bit-inverted, so
// a forward key iteration visits the highest priority first; the sequence
// number breaks ties in insertion order. The sequence counter is restored
// from the highest persisted key at open so insertion order survives a
// restart.

func encodePriority(priority int64) string {
	// Shift int64 into uint64 keeping order, then invert for descending sort.
	biased := uint64(priority) + (1 << 63)
	return fmt.Sprintf("%016x", ^biased)
}

func (s *BadgerStore) queueEntryKey(queue string, priority int64) []byte {
	seq := atomic.AddUint64(&s.queueSeq, 1)
	return []byte(fmt.Sprintf("%s:%s:%020d:%s",
		queueKey(queue), encodePriority(priority), seq, uuid.New().String()))
}

// loadQueueSeq seeds the sequence counter from the maximum sequence found in
// persisted queue keys, so entries enqueued after a reopen sort behind ones
// written before it.
func (s *BadgerStore) loadQueueSeq() error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(queuePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		var max uint64
		for it.Seek([]byte(queuePrefix)); it.Valid(); it.Next() {
			// <queue key>:<priority>:<seq>:<uuid>; the uuid carries no
			// colons, so the sequence is the second-to-last segment.
			parts := strings.Split(string(it.Item().Key()), ":")
			if len(parts) < 2 {
				continue
			}
			seq, err := strconv.ParseUint(parts[len(parts)-2], 10, 64)
			if err != nil {
				continue
			}
			if seq > max {
				max = seq
			}
		}
		atomic.StoreUint64(&s.queueSeq, max)
		return nil
	})
}

func (s *BadgerStore) Enqueue(ctx context.Context, queue string, payload []byte, priority int64) error {
	_ = ctx
	entry := QueueEntry{
		Payload:   payload,
		Priority:  priority,
		CreatedAt: time.Now(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	key := s.queueEntryKey(queue, priority)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (s *BadgerStore) Dequeue(ctx context.Context, queue string) ([]byte, bool, error) {
	_ = ctx
	var payload []byte
	var found bool

	prefix := []byte(queueKey(queue) + ":")
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(prefix)
		if !it.Valid() || !strings.HasPrefix(string(it.Item().Key()), string(prefix)) {
			return nil
		}

		item := it.Item()
		var entry QueueEntry
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entry)
		}); err != nil {
			return err
		}

		key := item.KeyCopy(nil)
		if err := txn.Delete(key); err != nil {
			return err
		}
		payload = entry.Payload
		found = true
		return nil
	})

	return payload, found, err
}
