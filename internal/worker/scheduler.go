// Package worker runs the periodic deliverability jobs: daily snapshots,
// engagement recompute, campaign health sweeps, domain auth refresh and
// background verification of unverified leads.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	cronv3 "github.com/robfig/cron/v3"

	"github.com/ignite/mailguard/internal/pkg/distlock"
	"github.com/ignite/mailguard/internal/pkg/logger"
)

// Job is a named unit of periodic work.
type Job struct {
	Name     string
	Schedule string
	Run      func(ctx context.Context) error
}

// LockFunc returns the cross-replica lock guarding a job.
type LockFunc func(job string) distlock.Lock

// Scheduler runs jobs on cron schedules. Each run takes the job's
// distributed lock first, so only one replica executes it.
type Scheduler struct {
	cron    *cronv3.Cron
	lock    LockFunc
	timeout time.Duration

	mu     sync.Mutex
	jobs   map[string]Job
	jobIDs map[string]cronv3.EntryID
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler. timeout bounds a single run; zero
// leaves runs unbounded.
func NewScheduler(lock LockFunc, timeout time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cronv3.New(cronv3.WithChain(
			cronv3.SkipIfStillRunning(cronLogger{}),
			cronv3.Recover(cronLogger{}),
		)),
		lock:    lock,
		timeout: timeout,
		jobs:    make(map[string]Job),
		jobIDs:  make(map[string]cronv3.EntryID),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register adds a job. An empty schedule disables the job.
func (s *Scheduler) Register(job Job) error {
	if job.Schedule == "" {
		logger.Info("job disabled", "job", job.Name)
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[job.Name]; dup {
		return fmt.Errorf("job %s already registered", job.Name)
	}
	id, err := s.cron.AddFunc(job.Schedule, func() {
		if _, err := s.RunNow(s.ctx, job.Name); err != nil {
			logger.Error("job failed", "job", job.Name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Schedule, err)
	}
	s.jobs[job.Name] = job
	s.jobIDs[job.Name] = id
	logger.Info("job registered", "job", job.Name, "schedule", job.Schedule)
	return nil
}

// Jobs lists registered job names with their next run time.
func (s *Scheduler) Jobs() map[string]time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.jobIDs))
	for name, id := range s.jobIDs {
		out[name] = s.cron.Entry(id).Next
	}
	return out
}

// RunNow executes a registered job immediately under its lock. ran is false
// when another replica holds the lock.
func (s *Scheduler) RunNow(ctx context.Context, name string) (ran bool, err error) {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("unknown job %s", name)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	ran, err = distlock.Run(ctx, s.lock(name), job.Run)
	switch {
	case !ran && err == nil:
		logger.Debug("job skipped, lock held elsewhere", "job", name)
	case ran:
		logger.Info("job finished", "job", name, "duration", time.Since(start).String(), "ok", err == nil)
	}
	return ran, err
}

// Start begins firing schedules.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

// cronLogger routes cron's own messages through the structured logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
