package storage

import "log"

// Open returns the configured store, probing the durable backend once at
// construction time. If badger cannot be opened the store transparently and
// permanently falls back to the in-process backend for this instance's
// lifetime; callers never see the failure as an error.
func Open(backend, dataDir string) Store {
	switch backend {
	case "memory":
		return NewMemoryStore()
	case "badger", "":
		s, err := NewBadgerStore(dataDir)
		if err != nil {
			log.Printf("Failed to open badger store at %s: %v. Using in-memory fallback.", dataDir, err)
			return NewMemoryStore()
		}
		return s
	default:
		log.Printf("Unknown store backend %q. Using in-memory fallback.", backend)
		return NewMemoryStore()
	}
}
