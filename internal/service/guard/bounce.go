package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/besteffort"
	"github.com/ignite/mailguard/internal/pkg/logger"
)

// BounceAction is what a bounce report did to the queue.
type BounceAction string

const (
	BounceQueued    BounceAction = "queued"
	BounceConverted BounceAction = "converted"
	BounceIgnored   BounceAction = "ignored"
)

// SoftBounce is a temporary delivery failure report.
type SoftBounce struct {
	LeadID     string `json:"lead_id"`
	CampaignID string `json:"campaign_id"`
	Email      string `json:"email"`
	Subject    string `json:"subject"`
	HTML       string `json:"html"`
	Error      string `json:"error"`
}

// BounceOutcome describes the queue transition a report caused.
type BounceOutcome struct {
	Action BounceAction             `json:"action"`
	Entry  *domain.BounceQueueEntry `json:"entry,omitempty"`
}

// HandleSoftBounce queues a retry for the (lead, campaign) pair with a
// growing delay. The report that brings the pair to three soft bounces
// turns the lead into a hard bounce and drops the entry. Reports for a lead
// that is already hard-bounced are ignored.
func (s *Service) HandleSoftBounce(ctx context.Context, b SoftBounce) (BounceOutcome, error) {
	lead, err := s.leads.Get(ctx, b.LeadID)
	if err != nil {
		return BounceOutcome{}, fmt.Errorf("get lead %s: %w", b.LeadID, err)
	}
	if lead.IsHardBounced() {
		return BounceOutcome{Action: BounceIgnored}, nil
	}

	existing, err := s.bounces.Find(ctx, b.LeadID, b.CampaignID)
	if err != nil && !errors.Is(err, ErrBounceEntryNotFound) {
		return BounceOutcome{}, fmt.Errorf("find bounce entry: %w", err)
	}

	retries := 0
	if existing != nil {
		retries = existing.Retries
	}
	now := s.now()

	if retries+1 >= domain.MaxSoftBounceRetries {
		if err := s.leads.MarkHardBounce(ctx, b.LeadID, now); err != nil {
			return BounceOutcome{}, fmt.Errorf("mark hard bounce: %w", err)
		}
		if existing != nil {
			if err := s.bounces.Delete(ctx, b.LeadID, b.CampaignID); err != nil {
				return BounceOutcome{}, fmt.Errorf("delete bounce entry: %w", err)
			}
		}
		logger.Info("soft bounces converted to hard bounce", "lead_id", b.LeadID, "campaign_id", b.CampaignID, "retries", retries+1)
		return BounceOutcome{Action: BounceConverted}, nil
	}

	entry := existing
	if entry == nil {
		entry = &domain.BounceQueueEntry{LeadID: b.LeadID, CampaignID: b.CampaignID, CreatedAt: now}
	}
	if b.Email != "" {
		entry.Email = b.Email
	} else if entry.Email == "" {
		entry.Email = lead.Email
	}
	if b.Subject != "" {
		entry.Subject = b.Subject
	}
	if b.HTML != "" {
		entry.HTML = b.HTML
	}
	entry.Error = b.Error
	entry.Retries = retries + 1
	entry.NextRetry = now.Add(domain.RetryDelay(retries))
	entry.UpdatedAt = now

	if err := s.bounces.Upsert(ctx, entry); err != nil {
		return BounceOutcome{}, fmt.Errorf("upsert bounce entry: %w", err)
	}
	return BounceOutcome{Action: BounceQueued, Entry: entry}, nil
}

// HandleHardBounce marks the lead as a hard bounce at once and clears any
// pending retry for the pair. A lead that is already hard-bounced is left
// as is.
func (s *Service) HandleHardBounce(ctx context.Context, leadID, campaignID string) (BounceOutcome, error) {
	lead, err := s.leads.Get(ctx, leadID)
	if err != nil {
		return BounceOutcome{}, fmt.Errorf("get lead %s: %w", leadID, err)
	}
	if lead.IsHardBounced() {
		return BounceOutcome{Action: BounceIgnored}, nil
	}
	if err := s.leads.MarkHardBounce(ctx, leadID, s.now()); err != nil {
		return BounceOutcome{}, fmt.Errorf("mark hard bounce: %w", err)
	}
	besteffort.Do("clear bounce entry", func() error {
		return s.bounces.Delete(ctx, leadID, campaignID)
	}, "lead_id", leadID, "campaign_id", campaignID)
	return BounceOutcome{Action: BounceConverted}, nil
}

// DueRetries lists queue entries ready for the external retry scheduler.
func (s *Service) DueRetries(ctx context.Context, limit int) ([]domain.BounceQueueEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	entries, err := s.bounces.Due(ctx, s.now(), limit)
	if err != nil {
		return nil, fmt.Errorf("list due retries: %w", err)
	}
	return entries, nil
}
