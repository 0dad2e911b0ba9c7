// Package distlock keeps periodic jobs single-flight across worker replicas.
package distlock

import (
	"context"
	"database/sql"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotHeld is returned when releasing or extending a lock this process
// no longer owns.
var ErrNotHeld = errors.New("distlock: lock not held")

// Lock is a non-blocking mutual-exclusion primitive shared between processes.
// A Lock value must not be used from more than one goroutine at a time.
type Lock interface {
	// TryAcquire reports whether the lock was taken.
	TryAcquire(ctx context.Context) (bool, error)
	// Release gives the lock up if this process still owns it.
	Release(ctx context.Context) error
}

// New returns a Redis lock when client is non-nil and a Postgres advisory
// lock otherwise.
func New(client *redis.Client, db *sql.DB, key string, ttl time.Duration) Lock {
	if client != nil {
		return NewRedisLock(client, key, ttl)
	}
	return NewAdvisoryLock(db, key)
}

// Run calls fn only if lk can be acquired and releases it afterwards. A
// Redis lock is kept alive while fn runs. The boolean result reports whether
// fn ran.
func Run(ctx context.Context, lk Lock, fn func(context.Context) error) (bool, error) {
	ok, err := lk.TryAcquire(ctx)
	if err != nil || !ok {
		return false, err
	}
	defer lk.Release(context.WithoutCancel(ctx))
	if rl, ok := lk.(*RedisLock); ok {
		stop := rl.keepAlive(ctx)
		defer stop()
	}
	return true, fn(ctx)
}

// AdvisoryLock uses session-scoped pg_try_advisory_lock on a connection
// pinned for as long as the lock is held. The server drops it when the
// connection closes.
type AdvisoryLock struct {
	db   *sql.DB
	id   int64
	mu   sync.Mutex
	conn *sql.Conn
}

// NewAdvisoryLock derives a stable lock id from key.
func NewAdvisoryLock(db *sql.DB, key string) *AdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &AdvisoryLock{db: db, id: int64(h.Sum64())}
}

func (l *AdvisoryLock) TryAcquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn != nil {
		return false, nil
	}

	conn, err := l.db.Conn(ctx)
	if err != nil {
		return false, err
	}
	var acquired bool
	if err := conn.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.id).Scan(&acquired); err != nil {
		conn.Close()
		return false, err
	}
	if !acquired {
		conn.Close()
		return false, nil
	}
	l.conn = conn
	return true, nil
}

func (l *AdvisoryLock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conn == nil {
		return ErrNotHeld
	}
	conn := l.conn
	l.conn = nil
	defer conn.Close()
	_, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.id)
	return err
}
