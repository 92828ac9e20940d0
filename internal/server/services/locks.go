package services

import "sync"

// ownerLocks serializes structural folder mutations per owner. Path
// denormalization assumes no two tree mutations for the same owner run
// concurrently; different owners never contend.
type ownerLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for ownerID and returns the unlock func.
func (l *ownerLocks) Lock(ownerID string) func() {
	l.mu.Lock()
	m, ok := l.locks[ownerID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[ownerID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
