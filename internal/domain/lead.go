package domain

import "time"

// BounceType records the worst bounce a lead has produced.
type BounceType string

const (
	BounceNone BounceType = ""
	BounceSoft BounceType = "soft"
	BounceHard BounceType = "hard"
)

// MaxBounceCount is the bounce count at which a lead is treated as a hard
// bounce regardless of BounceType.
const MaxBounceCount = 3

// Lead is the read projection of a contact used for eligibility, scoring and
// verification. The lead store owns the row; the engine reads it and issues
// targeted updates.
type Lead struct {
	ID              string             `json:"id" db:"id"`
	Email           string             `json:"email" db:"email"`
	FirstName       string             `json:"first_name" db:"first_name"`
	LastName        string             `json:"last_name" db:"last_name"`
	Company         string             `json:"company" db:"company"`
	Unsubscribed    bool               `json:"unsubscribed" db:"unsubscribed"`
	ComplainedAt    *time.Time         `json:"complained_at" db:"complained_at"`
	BounceType      BounceType         `json:"bounce_type" db:"bounce_type"`
	BounceCount     int                `json:"bounce_count" db:"bounce_count"`
	LastBounceAt    *time.Time         `json:"last_bounce_at" db:"last_bounce_at"`
	VerifyResult    VerificationResult `json:"verify_result" db:"verify_result"`
	VerifiedAt      *time.Time         `json:"verified_at" db:"verified_at"`
	EngagementScore float64            `json:"engagement_score" db:"engagement_score"`
	LastEngagedAt   *time.Time         `json:"last_engaged_at" db:"last_engaged_at"`
	EmailsSent      int                `json:"emails_sent" db:"emails_sent"`
	LastEmailAt     *time.Time         `json:"last_email_at" db:"last_email_at"`
	CreatedAt       time.Time          `json:"created_at" db:"created_at"`
}

// IsHardBounced reports the permanent bounce state: an explicit hard bounce
// or too many bounces of any kind.
func (l *Lead) IsHardBounced() bool {
	return l.BounceType == BounceHard || l.BounceCount >= MaxBounceCount
}

// MergeFields returns the values exposed to content templates.
func (l *Lead) MergeFields() map[string]any {
	return map[string]any{
		"email":      l.Email,
		"first_name": l.FirstName,
		"last_name":  l.LastName,
		"company":    l.Company,
	}
}

// LeadStats aggregates list-hygiene counts across all leads.
type LeadStats struct {
	Total       int `json:"total"`
	HardBounced int `json:"hard_bounced"`
	Complained  int `json:"complained"`
}
