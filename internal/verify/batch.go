package verify

import (
	"context"
	"time"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/besteffort"
)

// RecordStore persists a verdict onto the lead it belongs to.
type RecordStore interface {
	SaveVerification(ctx context.Context, leadID string, rec domain.VerificationRecord) error
}

// BatchItem is one lead to verify.
type BatchItem struct {
	LeadID string `json:"lead_id"`
	Email  string `json:"email"`
}

// BatchResult pairs a lead with its verdict.
type BatchResult struct {
	LeadID string                    `json:"lead_id"`
	Record domain.VerificationRecord `json:"record"`
}

// BatchSummary counts batch verdicts by result.
type BatchSummary map[domain.VerificationResult]int

// Summarize counts results by verdict.
func Summarize(results []BatchResult) BatchSummary {
	s := BatchSummary{}
	for _, r := range results {
		s[r.Record.Result]++
	}
	return s
}

// VerifyBatch verifies items one at a time with a fixed pause between
// them. A failing item (panic or store error) is recorded as unknown and
// the batch moves on. When ctx is done the batch stops and returns the
// items processed so far with ctx's error. store may be nil.
func (v *Verifier) VerifyBatch(ctx context.Context, items []BatchItem, store RecordStore) ([]BatchResult, error) {
	results := make([]BatchResult, 0, len(items))
	for i, item := range items {
		if i > 0 && v.batchDelay > 0 {
			if err := sleep(ctx, v.batchDelay); err != nil {
				return results, err
			}
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		results = append(results, BatchResult{LeadID: item.LeadID, Record: v.verifyItem(ctx, item, store)})
	}
	return results, nil
}

func (v *Verifier) verifyItem(ctx context.Context, item BatchItem, store RecordStore) domain.VerificationRecord {
	var rec domain.VerificationRecord
	res := besteffort.Do("verify address", func() error {
		rec = v.Verify(ctx, item.Email)
		return nil
	}, "lead_id", item.LeadID)
	if !res.OK() {
		return v.unknown(item.Email, "Verification failed unexpectedly")
	}

	if store == nil {
		return rec
	}
	res = besteffort.Do("store verification", func() error {
		return store.SaveVerification(ctx, item.LeadID, rec)
	}, "lead_id", item.LeadID, "result", string(rec.Result))
	if !res.OK() {
		return v.unknown(rec.Email, "Verification result could not be stored")
	}
	return rec
}

func (v *Verifier) unknown(email, reason string) domain.VerificationRecord {
	return domain.VerificationRecord{
		Email:     email,
		Result:    domain.VerifyUnknown,
		Details:   domain.VerificationDetails{SMTPCheck: domain.SMTPSkipped},
		Reason:    reason,
		CheckedAt: v.now(),
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
