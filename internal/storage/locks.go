package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Advisory lock class for per-employee punch transition locks. The
// second key is derived from the employee UUID so two app versions
// hashing the same id always contend on the same lock.
const employeeLockClass = 1201

// Well-known session lock ids for background jobs
const (
	ReminderSchedulerLockID int64 = 824001
	AutoCloseLockID         int64 = 824002
)

// namedLocks tracks the connection each held session lock lives on.
// Shared between the root store and its transaction stores.
type namedLocks struct {
	mu    sync.Mutex
	conns map[int64]*sql.Conn
}

// employeeLockKey folds a UUID into a signed 32-bit key for
// pg_try_advisory_xact_lock(int, int).
func employeeLockKey(id uuid.UUID) int32 {
	var key uint32
	b := id[:]
	for i := 0; i < 16; i += 4 {
		key ^= uint32(b[i])<<24 | uint32(b[i+1])<<16 | uint32(b[i+2])<<8 | uint32(b[i+3])
	}
	return int32(key)
}

// TryEmployeeLock acquires the transaction-scoped advisory lock that
// serializes punch transitions for one employee. The lock releases on
// commit or rollback. Returns false when another transition holds it.
func (s *PostgresStore) TryEmployeeLock(ctx context.Context, employeeID uuid.UUID) (bool, error) {
	var acquired bool
	err := s.getDB().QueryRowContext(ctx,
		`SELECT pg_try_advisory_xact_lock($1, $2)`,
		employeeLockClass, employeeLockKey(employeeID),
	).Scan(&acquired)
	if err != nil {
		return false, err
	}
	return acquired, nil
}

// TryNamedLock acquires a session-scoped advisory lock with a
// well-known id. Session locks belong to one Postgres connection, so
// the lock is taken on a dedicated connection pinned out of the pool
// until ReleaseNamedLock; going through the pool would release on the
// wrong connection and leave the lock held forever.
func (s *PostgresStore) TryNamedLock(ctx context.Context, id int64) (bool, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return false, err
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx,
		`SELECT pg_try_advisory_lock($1)`, id,
	).Scan(&acquired); err != nil {
		conn.Close()
		return false, err
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	s.locks.mu.Lock()
	s.locks.conns[id] = conn
	s.locks.mu.Unlock()
	return true, nil
}

// ReleaseNamedLock unlocks on the pinned connection and returns it to
// the pool
func (s *PostgresStore) ReleaseNamedLock(ctx context.Context, id int64) error {
	s.locks.mu.Lock()
	conn := s.locks.conns[id]
	delete(s.locks.conns, id)
	s.locks.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("named lock %d is not held", id)
	}

	var released bool
	err := conn.QueryRowContext(ctx,
		`SELECT pg_advisory_unlock($1)`, id,
	).Scan(&released)
	conn.Close()
	if err != nil {
		return err
	}
	if !released {
		return fmt.Errorf("named lock %d was not held by its session", id)
	}
	return nil
}
