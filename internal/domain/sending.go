package domain

import "time"

// OutboundMessage is the fully rendered message handed to an ESP sender.
type OutboundMessage struct {
	LeadID     string            `json:"lead_id"`
	CampaignID string            `json:"campaign_id,omitempty"`
	To         string            `json:"to"`
	FromName   string            `json:"from_name"`
	FromEmail  string            `json:"from_email"`
	Subject    string            `json:"subject"`
	HTML       string            `json:"html"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// SendResult is returned by an ESP sender after attempting delivery.
type SendResult struct {
	Success   bool      `json:"success"`
	MessageID string    `json:"message_id"`
	SentAt    time.Time `json:"sent_at"`
	Error     string    `json:"error,omitempty"`
	// Permanent marks a rejection the provider will never accept (a hard
	// bounce at submission time).
	Permanent bool `json:"permanent,omitempty"`
}
