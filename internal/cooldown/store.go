package cooldown

import (
	"context"
	"sync"
	"time"
)

// Record is the durable form of a cooldown window.
type Record struct {
	ID      string    `json:"id"`
	Expires time.Time `json:"expires"`
}

// Store persists long-lived cooldown windows. The Manager is its only writer.
type Store interface {
	// DeleteExpired removes every record that expired before t and reports how many went.
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
	LoadAll(ctx context.Context) ([]Record, error)
	Upsert(ctx context.Context, rec Record) error
	// Delete is a no-op for unknown ids.
	Delete(ctx context.Context, id string) error
}

// keyLocks serializes durable writes per key so a later write for a key is
// never overtaken by an earlier one.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

func (k *keyLocks) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (k *keyLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
