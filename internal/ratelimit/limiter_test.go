package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestCheck_WindowLimit(t *testing.T) {
	clock := newFakeClock()
	l := New(2, WithClock(clock.Now))

	assert.True(t, l.Check().Allowed)
	assert.True(t, l.Check().Allowed)

	clock.Advance(15 * time.Second)
	d := l.Check()
	assert.False(t, d.Allowed)
	assert.Equal(t, 45*time.Second, d.Wait)
	assert.Contains(t, d.Reason, "2 per minute")
}

func TestCheck_WaitFloor(t *testing.T) {
	clock := newFakeClock()
	l := New(1, WithClock(clock.Now))
	require.True(t, l.Check().Allowed)

	clock.Advance(59*time.Second + 800*time.Millisecond)
	d := l.Check()
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Second, d.Wait)
}

func TestCheck_WindowResets(t *testing.T) {
	clock := newFakeClock()
	l := New(1, WithClock(clock.Now))
	require.True(t, l.Check().Allowed)
	require.False(t, l.Check().Allowed)

	clock.Advance(time.Minute)
	assert.True(t, l.Check().Allowed)
	assert.Equal(t, 1, l.State().Count)
}

func TestReportError_Backoff(t *testing.T) {
	clock := newFakeClock()
	l := New(100, WithClock(clock.Now))

	assert.Equal(t, 5*time.Second, l.ReportError())
	assert.Equal(t, 10*time.Second, l.ReportError())
	assert.Equal(t, 20*time.Second, l.ReportError())

	d := l.Check()
	assert.False(t, d.Allowed)
	assert.Equal(t, 20*time.Second, d.Wait)

	clock.Advance(19 * time.Second)
	assert.False(t, l.Check().Allowed)

	clock.Advance(time.Second)
	assert.True(t, l.Check().Allowed)
}

func TestReportError_DoesNotConsumeSlots(t *testing.T) {
	clock := newFakeClock()
	l := New(1, WithClock(clock.Now))
	l.ReportError()
	assert.False(t, l.Check().Allowed)
	assert.Equal(t, 0, l.State().Count)
}

func TestReportSuccess_KeepsBackoff(t *testing.T) {
	clock := newFakeClock()
	l := New(10, WithClock(clock.Now))
	l.ReportError()
	l.ReportError()
	l.ReportSuccess()

	st := l.State()
	assert.Equal(t, 0, st.ConsecutiveErrors)
	assert.Equal(t, clock.Now().Add(10*time.Second), st.BackoffUntil)
	assert.False(t, l.Check().Allowed)

	// Streak restarts at the base delay.
	assert.Equal(t, 5*time.Second, l.ReportError())
}

func TestBackoffFor(t *testing.T) {
	assert.Equal(t, time.Duration(0), BackoffFor(0))
	assert.Equal(t, 5*time.Second, BackoffFor(1))
	assert.Equal(t, 80*time.Second, BackoffFor(5))
	assert.Equal(t, 120*time.Second, BackoffFor(6))
	assert.Equal(t, 120*time.Second, BackoffFor(50))
}

func TestNew_DefaultMax(t *testing.T) {
	assert.Equal(t, DefaultMaxPerMinute, New(0).State().MaxPerMinute)
}

func TestCheck_Concurrent(t *testing.T) {
	l := New(50)
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Check().Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}

func TestWait_ContextCancelled(t *testing.T) {
	l := New(1)
	require.True(t, l.Check().Allowed)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWait_Allowed(t *testing.T) {
	assert.NoError(t, New(5).Wait(context.Background()))
}
