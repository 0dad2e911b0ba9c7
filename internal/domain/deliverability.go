package domain

import "time"

// FactorStatus is the traffic-light status of a score factor.
type FactorStatus string

const (
	StatusGood    FactorStatus = "good"
	StatusWarning FactorStatus = "warning"
	StatusDanger  FactorStatus = "danger"
)

// ScoreFactor is one line of the deliverability score breakdown.
type ScoreFactor struct {
	Name     string       `json:"name"`
	Score    int          `json:"score"`
	MaxScore int          `json:"max_score"`
	Status   FactorStatus `json:"status"`
	Detail   string       `json:"detail"`
}

// DeliverabilityScore is computed on demand and never stored as-is.
type DeliverabilityScore struct {
	Total      int           `json:"total"`
	Rating     string        `json:"rating"`
	Factors    []ScoreFactor `json:"factors"`
	ComputedAt time.Time     `json:"computed_at"`
}

// DeliverabilitySnapshot is the per-day aggregate row. Date is truncated to
// midnight UTC and is the upsert key.
type DeliverabilitySnapshot struct {
	ID            string    `json:"id" db:"id"`
	Date          time.Time `json:"date" db:"date"`
	Sent          int       `json:"sent" db:"sent"`
	Opened        int       `json:"opened" db:"opened"`
	Clicked       int       `json:"clicked" db:"clicked"`
	Replied       int       `json:"replied" db:"replied"`
	Bounced       int       `json:"bounced" db:"bounced"`
	Complained    int       `json:"complained" db:"complained"`
	Unsubscribed  int       `json:"unsubscribed" db:"unsubscribed"`
	BounceRate    float64   `json:"bounce_rate" db:"bounce_rate"`
	ComplaintRate float64   `json:"complaint_rate" db:"complaint_rate"`
	UnsubRate     float64   `json:"unsub_rate" db:"unsub_rate"`
	OpenRate      float64   `json:"open_rate" db:"open_rate"`
	Score         int       `json:"score" db:"score"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// SendingDomain is a registry entry for a from-domain and its last
// SPF/DKIM/DMARC check.
type SendingDomain struct {
	ID              string     `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	DKIMSelector    string     `json:"dkim_selector" db:"dkim_selector"`
	Verified        bool       `json:"verified" db:"verified"`
	LastCheckResult string     `json:"last_check_result" db:"last_check_result"`
	LastCheckedAt   *time.Time `json:"last_checked_at" db:"last_checked_at"`
}

// DomainAuth is the result of a domain authentication check.
type DomainAuth struct {
	Domain   string   `json:"domain"`
	Verified bool     `json:"verified"`
	Missing  []string `json:"missing"`
}

// AuthMechanisms are the checks recorded for a sending domain, in report order.
var AuthMechanisms = []string{"spf", "dkim", "dmarc"}
