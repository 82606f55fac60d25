package database

import (
	"context"
	"fmt"
	"time"
)

// SessionLocker serializes work on one session across processes with a
// PostgreSQL advisory lock. The lock lives on a connection taken from the pool
// for the length of the operation.
type SessionLocker struct {
	db *DB
}

// SessionLocks returns the cross-process session locker.
func (db *DB) SessionLocks() *SessionLocker { return &SessionLocker{db: db} }

// Lock blocks until no other holder owns sessionID or ctx is done.
func (l *SessionLocker) Lock(ctx context.Context, sessionID string) (func(), error) {
	conn, err := l.db.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection for session lock: %w", err)
	}

	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock(hashtextextended($1, 0))`, sessionID); err != nil {
		// A canceled wait may still have been granted; closing the connection
		// drops any advisory lock it holds.
		_ = conn.Conn().Close(context.Background())
		conn.Release()
		return nil, fmt.Errorf("failed to lock session: %w", err)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctx, `SELECT pg_advisory_unlock(hashtextextended($1, 0))`, sessionID); err != nil {
			_ = conn.Conn().Close(ctx)
		}
		conn.Release()
	}, nil
}
