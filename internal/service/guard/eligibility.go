package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ignite/mailguard/internal/domain"
)

// Skip reasons, in rule order.
const (
	ReasonNotFound     = "Lead not found"
	ReasonUnsubscribed = "Unsubscribed"
	ReasonComplained   = "Complained"
	ReasonHardBounce   = "Hard bounce"
	ReasonInvalidEmail = "Invalid email"
	ReasonDisengaged   = "Disengaged"
	ReasonFrequencyCap = "Frequency cap"
)

// Eligibility is the verdict for one lead.
type Eligibility struct {
	LeadID   string `json:"lead_id"`
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// Skipped is an ineligible lead in a batch verdict.
type Skipped struct {
	LeadID string `json:"lead_id"`
	Reason string `json:"reason"`
}

// BatchEligibility partitions a recipient list.
type BatchEligibility struct {
	Eligible []string  `json:"eligible"`
	Skipped  []Skipped `json:"skipped"`
}

// IsLeadEligible applies the eligibility rules to one lead. A missing lead
// is a verdict, not an error.
func (s *Service) IsLeadEligible(ctx context.Context, leadID string) (Eligibility, error) {
	lead, err := s.leads.Get(ctx, leadID)
	if errors.Is(err, ErrLeadNotFound) {
		return Eligibility{LeadID: leadID, Reason: ReasonNotFound}, nil
	}
	if err != nil {
		return Eligibility{}, fmt.Errorf("get lead %s: %w", leadID, err)
	}
	return evaluate(lead, s.now()), nil
}

// FilterEligible applies the same rules to many leads with one store round
// trip. Output order follows leadIDs.
func (s *Service) FilterEligible(ctx context.Context, leadIDs []string) (BatchEligibility, error) {
	out := BatchEligibility{Eligible: []string{}, Skipped: []Skipped{}}
	if len(leadIDs) == 0 {
		return out, nil
	}

	leads, err := s.leads.FindMany(ctx, leadIDs)
	if err != nil {
		return BatchEligibility{}, fmt.Errorf("find leads: %w", err)
	}
	byID := make(map[string]*domain.Lead, len(leads))
	for i := range leads {
		byID[leads[i].ID] = &leads[i]
	}

	now := s.now()
	for _, id := range leadIDs {
		lead, ok := byID[id]
		if !ok {
			out.Skipped = append(out.Skipped, Skipped{LeadID: id, Reason: ReasonNotFound})
			continue
		}
		v := evaluate(lead, now)
		if v.Eligible {
			out.Eligible = append(out.Eligible, id)
		} else {
			out.Skipped = append(out.Skipped, Skipped{LeadID: id, Reason: v.Reason})
		}
	}
	return out, nil
}

// evaluate returns the first matching rule.
func evaluate(l *domain.Lead, now time.Time) Eligibility {
	v := Eligibility{LeadID: l.ID}
	switch {
	case l.Unsubscribed:
		v.Reason = ReasonUnsubscribed
	case l.ComplainedAt != nil:
		v.Reason = ReasonComplained
	case l.IsHardBounced():
		v.Reason = ReasonHardBounce
	case l.VerifyResult == domain.VerifyInvalid || l.VerifyResult == domain.VerifyDisposable:
		v.Reason = ReasonInvalidEmail
	case l.EmailsSent >= disengagedSends && l.LastEngagedAt != nil && now.Sub(*l.LastEngagedAt) > disengagedAfter:
		v.Reason = ReasonDisengaged
	case l.LastEmailAt != nil && now.Sub(*l.LastEmailAt) < frequencyCap:
		v.Reason = ReasonFrequencyCap
	default:
		v.Eligible = true
	}
	return v
}
