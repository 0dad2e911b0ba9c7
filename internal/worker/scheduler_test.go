package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/mailguard/internal/pkg/distlock"
)

func setupScheduler(t *testing.T) (*Scheduler, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	s := NewScheduler(func(job string) distlock.Lock {
		return distlock.NewRedisLock(client, "job:"+job, time.Minute)
	}, time.Second)
	t.Cleanup(s.Stop)
	return s, client
}

func TestScheduler_RegisterAndRunNow(t *testing.T) {
	s, _ := setupScheduler(t)
	var calls int32

	require.NoError(t, s.Register(Job{Name: "count", Schedule: "*/5 * * * *", Run: func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}}))

	ran, err := s.RunNow(context.Background(), "count")
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	assert.Contains(t, s.Jobs(), "count")
}

func TestScheduler_EmptyScheduleDisables(t *testing.T) {
	s, _ := setupScheduler(t)
	require.NoError(t, s.Register(Job{Name: "off", Run: func(context.Context) error { return nil }}))

	_, err := s.RunNow(context.Background(), "off")
	assert.Error(t, err)
	assert.NotContains(t, s.Jobs(), "off")
}

func TestScheduler_RejectsBadSpecAndDuplicates(t *testing.T) {
	s, _ := setupScheduler(t)
	noop := func(context.Context) error { return nil }

	assert.Error(t, s.Register(Job{Name: "bad", Schedule: "every tuesday", Run: noop}))
	require.NoError(t, s.Register(Job{Name: "dup", Schedule: "@hourly", Run: noop}))
	assert.Error(t, s.Register(Job{Name: "dup", Schedule: "@daily", Run: noop}))
}

func TestScheduler_SkipsWhenLockHeld(t *testing.T) {
	s, client := setupScheduler(t)
	called := false
	require.NoError(t, s.Register(Job{Name: "locked", Schedule: "@hourly", Run: func(context.Context) error {
		called = true
		return nil
	}}))

	other := distlock.NewRedisLock(client, "job:locked", time.Minute)
	ok, err := other.TryAcquire(context.Background())
	require.NoError(t, err)
	require.True(t, ok)

	ran, err := s.RunNow(context.Background(), "locked")
	require.NoError(t, err)
	assert.False(t, ran)
	assert.False(t, called)
}

func TestScheduler_RunTimeout(t *testing.T) {
	s, _ := setupScheduler(t)
	require.NoError(t, s.Register(Job{Name: "slow", Schedule: "@hourly", Run: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}))

	ran, err := s.RunNow(context.Background(), "slow")
	assert.True(t, ran)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
