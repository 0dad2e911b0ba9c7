package guard

import "errors"

// Sentinel errors for the guard service layer.
var (
	ErrLeadNotFound        = errors.New("lead not found")
	ErrCampaignNotFound    = errors.New("campaign not found")
	ErrBounceEntryNotFound = errors.New("bounce queue entry not found")
	ErrDomainNotFound      = errors.New("sending domain not found")
	ErrSnapshotNotFound    = errors.New("deliverability snapshot not found")
	ErrNotEngagement       = errors.New("event type does not carry an engagement weight")
)
