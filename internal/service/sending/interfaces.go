// Package sending gates every outbound message through the guard rules,
// the shared rate limiter and content rendering before handing it to an
// ESP Sender, then feeds the outcome back into bounce and send tracking.
//
// The gate never talks to an ESP directly; the Sender is injected so the
// same flow serves SES in production and fakes in tests.
package sending

import (
	"context"
	"time"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/ratelimit"
	"github.com/ignite/mailguard/internal/service/guard"
)

// Sender delivers one rendered message. A non-nil error means the provider
// itself failed (network, throttling, credentials); a recipient rejection
// is reported as a SendResult with Success false.
type Sender interface {
	Send(ctx context.Context, msg *domain.OutboundMessage) (*domain.SendResult, error)
}

// Guard is the subset of the guard service the gate relies on.
type Guard interface {
	IsLeadEligible(ctx context.Context, leadID string) (guard.Eligibility, error)
	HandleSoftBounce(ctx context.Context, b guard.SoftBounce) (guard.BounceOutcome, error)
	HandleHardBounce(ctx context.Context, leadID, campaignID string) (guard.BounceOutcome, error)
}

// Limiter is the shared throughput gate.
type Limiter interface {
	Check() ratelimit.Decision
	ReportError() time.Duration
	ReportSuccess()
}

// Renderer personalizes a template for one lead.
type Renderer interface {
	Render(tmpl string, fields map[string]any) (string, error)
}

// LeadReader loads the lead being mailed and records completed sends.
type LeadReader interface {
	Get(ctx context.Context, id string) (*domain.Lead, error)
	RecordSend(ctx context.Context, id string, at time.Time) error
}

// EventWriter appends to the event log.
type EventWriter interface {
	Append(ctx context.Context, e *domain.Event) error
}
