package domain

import (
	"time"
)

// CampaignStatus enumerates the lifecycle states of a campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignSending   CampaignStatus = "sending"
	CampaignPaused    CampaignStatus = "paused"
	CampaignSent      CampaignStatus = "sent"
	CampaignCancelled CampaignStatus = "cancelled"
)

// Campaign is the part of a campaign record the guard needs: its state and
// the recipient count stored when sending started.
type Campaign struct {
	ID        string         `json:"id" db:"id"`
	Name      string         `json:"name" db:"name"`
	Status    CampaignStatus `json:"status" db:"status"`
	SentTo    int            `json:"sent_to" db:"sent_to"`
	FromEmail string         `json:"from_email" db:"from_email"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// IsSending reports whether the campaign is actively sending.
func (c *Campaign) IsSending() bool {
	return c.Status == CampaignSending
}

// CampaignHealth holds a campaign's rates, in percent of sent messages.
type CampaignHealth struct {
	Sent          int     `json:"sent"`
	BounceRate    float64 `json:"bounce_rate"`
	UnsubRate     float64 `json:"unsub_rate"`
	ComplaintRate float64 `json:"complaint_rate"`
}
