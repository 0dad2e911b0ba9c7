package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/logger"
	"github.com/ignite/mailguard/internal/verify"
)

// LeadSource lists leads that need a (re)verification.
type LeadSource interface {
	Unverified(ctx context.Context, staleBefore time.Time, limit int) ([]domain.Lead, error)
}

// BatchVerifier verifies a batch and stores each verdict.
type BatchVerifier interface {
	VerifyBatch(ctx context.Context, items []verify.BatchItem, store verify.RecordStore) ([]verify.BatchResult, error)
}

// VerificationJob verifies leads that were never checked or whose verdict
// has gone stale, a batch per run.
type VerificationJob struct {
	leads         LeadSource
	verifier      BatchVerifier
	store         verify.RecordStore
	batchSize     int
	reverifyAfter time.Duration
	now           func() time.Time

	mu        sync.Mutex
	lastRunAt time.Time
	healthy   bool
}

// NewVerificationJob creates the job. store receives each verdict.
func NewVerificationJob(leads LeadSource, v BatchVerifier, store verify.RecordStore, batchSize int, reverifyAfter time.Duration) *VerificationJob {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &VerificationJob{
		leads:         leads,
		verifier:      v,
		store:         store,
		batchSize:     batchSize,
		reverifyAfter: reverifyAfter,
		now:           time.Now,
		healthy:       true,
	}
}

func (v *VerificationJob) IsHealthy() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.healthy
}

func (v *VerificationJob) LastRunAt() time.Time {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastRunAt
}

// Run verifies one batch.
func (v *VerificationJob) Run(ctx context.Context) error {
	now := v.now()
	v.mu.Lock()
	v.lastRunAt = now
	v.mu.Unlock()

	leads, err := v.leads.Unverified(ctx, now.Add(-v.reverifyAfter), v.batchSize)
	v.setHealthy(err == nil)
	if err != nil {
		return err
	}
	if len(leads) == 0 {
		return nil
	}

	items := make([]verify.BatchItem, len(leads))
	for i, l := range leads {
		items[i] = verify.BatchItem{LeadID: l.ID, Email: l.Email}
	}
	results, err := v.verifier.VerifyBatch(ctx, items, v.store)

	summary := verify.Summarize(results)
	logger.Info("verification batch",
		"requested", len(items),
		"verified", len(results),
		"valid", summary[domain.VerifyValid],
		"invalid", summary[domain.VerifyInvalid],
		"risky", summary[domain.VerifyRisky],
		"unknown", summary[domain.VerifyUnknown],
	)
	return err
}

func (v *VerificationJob) setHealthy(ok bool) {
	v.mu.Lock()
	v.healthy = ok
	v.mu.Unlock()
}
