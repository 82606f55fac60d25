package conversation

import (
	"context"
	"sync"
)

// Locker serializes operations on one session across processes. Lock blocks
// until the caller owns sessionID or ctx is done.
type Locker interface {
	Lock(ctx context.Context, sessionID string) (unlock func(), err error)
}

// sessionLocks serializes work per session id while letting different
// sessions proceed in parallel. Entries are dropped once nobody holds or waits
// on them.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

// Lock implements Locker within one process.
func (l *sessionLocks) Lock(_ context.Context, id string) (func(), error) {
	return l.lock(id), nil
}

// lock blocks until the caller owns the session and returns the release func.
func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	entry, ok := l.locks[id]
	if !ok {
		entry = &sessionLock{}
		l.locks[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

func (l *sessionLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
