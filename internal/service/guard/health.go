package guard

import (
	"context"
	"fmt"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/logger"
)

// HealthReport is the result of a campaign health check.
type HealthReport struct {
	CampaignID  string                `json:"campaign_id"`
	Status      domain.CampaignStatus `json:"status"`
	Checked     bool                  `json:"checked"`
	Metrics     domain.CampaignHealth `json:"metrics"`
	ShouldPause bool                  `json:"should_pause"`
	Paused      bool                  `json:"paused"`
	Reason      string                `json:"reason,omitempty"`
}

// CheckCampaignHealth compares a sending campaign's bounce, unsubscribe and
// complaint rates with the thresholds and pauses it on the first breach.
// Campaigns in any other status are reported unchecked.
func (s *Service) CheckCampaignHealth(ctx context.Context, campaignID string) (HealthReport, error) {
	c, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		return HealthReport{}, fmt.Errorf("get campaign %s: %w", campaignID, err)
	}
	report := HealthReport{CampaignID: c.ID, Status: c.Status}
	if !c.IsSending() {
		return report, nil
	}
	report.Checked = true

	counts, err := s.events.CountByCampaign(ctx, c.ID)
	if err != nil {
		return HealthReport{}, fmt.Errorf("count campaign events: %w", err)
	}
	sent := counts[domain.EventSent]
	if sent == 0 {
		sent = c.SentTo
	}
	report.Metrics = domain.CampaignHealth{
		Sent:          sent,
		BounceRate:    percent(counts[domain.EventBounced], sent),
		UnsubRate:     percent(counts[domain.EventUnsubscribed], sent),
		ComplaintRate: percent(counts[domain.EventComplained], sent),
	}

	report.Reason = s.breach(report.Metrics)
	if report.Reason == "" {
		return report, nil
	}
	report.ShouldPause = true

	paused, err := s.campaigns.TransitionStatus(ctx, c.ID, domain.CampaignSending, domain.CampaignPaused)
	if err != nil {
		return report, fmt.Errorf("pause campaign %s: %w", c.ID, err)
	}
	report.Paused = paused
	if paused {
		report.Status = domain.CampaignPaused
		logger.Warn("campaign auto-paused", "campaign_id", c.ID, "reason", report.Reason)
	}
	return report, nil
}

// CheckSendingCampaigns runs the health check over every sending campaign
// and returns the reports of those that breached a threshold.
func (s *Service) CheckSendingCampaigns(ctx context.Context) ([]HealthReport, error) {
	campaigns, err := s.campaigns.ListByStatus(ctx, domain.CampaignSending)
	if err != nil {
		return nil, fmt.Errorf("list sending campaigns: %w", err)
	}
	var breached []HealthReport
	for _, c := range campaigns {
		if err := ctx.Err(); err != nil {
			return breached, err
		}
		r, err := s.CheckCampaignHealth(ctx, c.ID)
		if err != nil {
			logger.Error("campaign health check failed", "campaign_id", c.ID, "error", err.Error())
			continue
		}
		if r.ShouldPause {
			breached = append(breached, r)
		}
	}
	return breached, nil
}

// breach returns the reason for the first exceeded threshold, checked in
// bounce, unsubscribe, complaint order.
func (s *Service) breach(m domain.CampaignHealth) string {
	t := s.thresholds
	switch {
	case m.BounceRate > t.BounceRate:
		return fmt.Sprintf("Bounce rate %.2f%% exceeds %.2f%%", m.BounceRate, t.BounceRate)
	case m.UnsubRate > t.UnsubRate:
		return fmt.Sprintf("Unsubscribe rate %.2f%% exceeds %.2f%%", m.UnsubRate, t.UnsubRate)
	case m.ComplaintRate > t.ComplaintRate:
		return fmt.Sprintf("Complaint rate %.2f%% exceeds %.2f%%", m.ComplaintRate, t.ComplaintRate)
	}
	return ""
}
