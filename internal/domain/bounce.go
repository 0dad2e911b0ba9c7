package domain

import "time"

// SoftBounceDelays are the retry delays indexed by the entry's retry count
// before the new attempt is recorded.
var SoftBounceDelays = []time.Duration{1 * time.Hour, 6 * time.Hour, 24 * time.Hour}

// MaxSoftBounceRetries is the number of soft-bounce reports after which a
// lead is converted to a hard bounce.
const MaxSoftBounceRetries = 3

// BounceQueueEntry is a pending soft-bounce retry. An external scheduler
// polls NextRetry; the engine only manages the transitions.
type BounceQueueEntry struct {
	ID         string    `json:"id" db:"id"`
	LeadID     string    `json:"lead_id" db:"lead_id"`
	CampaignID string    `json:"campaign_id,omitempty" db:"campaign_id"`
	Email      string    `json:"email" db:"email"`
	Subject    string    `json:"subject" db:"subject"`
	HTML       string    `json:"html" db:"html"`
	Retries    int       `json:"retries" db:"retries"`
	NextRetry  time.Time `json:"next_retry" db:"next_retry"`
	Error      string    `json:"error" db:"error"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// RetryDelay returns the delay for an entry that has already been retried
// `retries` times, clamped to the last configured delay.
func RetryDelay(retries int) time.Duration {
	if retries < 0 {
		retries = 0
	}
	if retries >= len(SoftBounceDelays) {
		return SoftBounceDelays[len(SoftBounceDelays)-1]
	}
	return SoftBounceDelays[retries]
}
