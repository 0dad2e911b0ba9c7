package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/httputil"
	"github.com/ignite/mailguard/internal/ratelimit"
	"github.com/ignite/mailguard/internal/service/guard"
	"github.com/ignite/mailguard/internal/service/sending"
	"github.com/ignite/mailguard/internal/verify"
)

// Verifier checks addresses one at a time or in batches.
type Verifier interface {
	Verify(ctx context.Context, email string) domain.VerificationRecord
	VerifyBatch(ctx context.Context, items []verify.BatchItem, store verify.RecordStore) ([]verify.BatchResult, error)
}

// Guard is the part of guard.Service exposed over HTTP.
type Guard interface {
	IsLeadEligible(ctx context.Context, leadID string) (guard.Eligibility, error)
	FilterEligible(ctx context.Context, leadIDs []string) (guard.BatchEligibility, error)
	RecordEngagement(ctx context.Context, leadID string, t domain.EventType) (float64, error)
	HandleSoftBounce(ctx context.Context, b guard.SoftBounce) (guard.BounceOutcome, error)
	HandleHardBounce(ctx context.Context, leadID, campaignID string) (guard.BounceOutcome, error)
	DueRetries(ctx context.Context, limit int) ([]domain.BounceQueueEntry, error)
	CheckCampaignHealth(ctx context.Context, campaignID string) (guard.HealthReport, error)
	CheckSendingCampaigns(ctx context.Context) ([]guard.HealthReport, error)
	ComputeScore(ctx context.Context) (domain.DeliverabilityScore, error)
	CheckDomainAuth(ctx context.Context, fromAddress string) (domain.DomainAuth, error)
	RefreshDomainAuth(ctx context.Context, name string) (domain.DomainAuth, error)
	Snapshots(ctx context.Context, days int) ([]domain.DeliverabilitySnapshot, error)
	Thresholds() guard.Thresholds
}

// Gate delivers a single gated message.
type Gate interface {
	Send(ctx context.Context, req sending.Request) (sending.Outcome, error)
}

// LimiterState exposes the shared limiter's counters.
type LimiterState interface {
	State() ratelimit.State
}

// Renderer renders content templates for previews.
type Renderer interface {
	Render(tmpl string, fields map[string]any) (string, error)
	Validate(tmpl string) error
}

// Handlers holds the HTTP handlers. Gate may be nil when no sender is
// configured; the send endpoint then answers 503.
type Handlers struct {
	verifier Verifier
	records  verify.RecordStore
	guard    Guard
	gate     Gate
	limiter  LimiterState
	renderer Renderer
}

// Deps groups the collaborators passed to NewHandlers.
type Deps struct {
	Verifier Verifier
	Records  verify.RecordStore
	Guard    Guard
	Gate     Gate
	Limiter  LimiterState
	Renderer Renderer
}

// NewHandlers creates the handler set.
func NewHandlers(d Deps) *Handlers {
	return &Handlers{
		verifier: d.Verifier,
		records:  d.Records,
		guard:    d.Guard,
		gate:     d.Gate,
		limiter:  d.Limiter,
		renderer: d.Renderer,
	}
}

// writeError maps service sentinels onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, guard.ErrLeadNotFound),
		errors.Is(err, guard.ErrCampaignNotFound),
		errors.Is(err, guard.ErrDomainNotFound),
		errors.Is(err, guard.ErrBounceEntryNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, guard.ErrNotEngagement):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, context.Canceled):
		httputil.Error(w, 499, "cancelled", "request cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		httputil.Error(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		httputil.InternalError(w, err)
	}
}
