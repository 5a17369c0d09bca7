package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// BadgerStore implements Store on BadgerDB. TTL handling is delegated to
// badger entry expiry; queue ordering is encoded into the key layout so a
// forward iteration yields dequeue order (see badger_queue.go).
type BadgerStore struct {
	db       *badger.DB
	stop     chan struct{}
	queueSeq uint64
}

// NewBadgerStore opens (or creates) a badger-backed store at dataDir.
func NewBadgerStore(dataDir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dataDir).
		WithLogger(nil).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &BadgerStore{db: db, stop: make(chan struct{})}
	if err := s.loadQueueSeq(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to restore queue sequence: %w", err)
	}
	go s.runGC()
	return s, nil
}

// runGC runs the value log garbage collector periodically.
func (s *BadgerStore) runGC() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			_ = s.db.RunValueLogGC(0.7)
		}
	}
}

func (s *BadgerStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = ctx
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(dataKey(key)), value)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
}

// Get reports expired keys as not found; badger hides entries past their
// expiry without waiting for compaction.
func (s *BadgerStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	var value []byte
	var found bool

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(dataKey(key)))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			value = append([]byte{}, val...)
			return nil
		})
	})

	return value, found, err
}

func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	_ = ctx
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(dataKey(key)))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	})
}

// Available reports whether the database is still open.
func (s *BadgerStore) Available() bool {
	return !s.db.IsClosed()
}

func (s *BadgerStore) Close() error {
	select {
	case <-s.stop:
	default:
		close(s.stop)
	}
	return s.db.Close()
}
