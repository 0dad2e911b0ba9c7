package sending

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/besteffort"
	"github.com/ignite/mailguard/internal/pkg/logger"
	"github.com/ignite/mailguard/internal/service/guard"
)

// Status is the terminal state of one gated send.
type Status string

const (
	StatusSent      Status = "sent"
	StatusSkipped   Status = "skipped"
	StatusThrottled Status = "throttled"
	StatusFailed    Status = "failed"
	StatusBounced   Status = "bounced"
)

// Request is a message template addressed to one lead.
type Request struct {
	LeadID     string            `json:"lead_id"`
	CampaignID string            `json:"campaign_id,omitempty"`
	FromName   string            `json:"from_name"`
	FromEmail  string            `json:"from_email"`
	Subject    string            `json:"subject"`
	HTML       string            `json:"html"`
	Headers    map[string]string `json:"headers,omitempty"`
}

// Outcome reports what happened to a request. Wait is set when the caller
// should retry later.
type Outcome struct {
	Status    Status               `json:"status"`
	Reason    string               `json:"reason,omitempty"`
	Wait      time.Duration        `json:"wait,omitempty"`
	MessageID string               `json:"message_id,omitempty"`
	Bounce    *guard.BounceOutcome `json:"bounce,omitempty"`
}

// Gate runs the pre-send checks and post-send bookkeeping.
type Gate struct {
	guard    Guard
	leads    LeadReader
	events   EventWriter
	limiter  Limiter
	renderer Renderer
	sender   Sender
	now      func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// NewGate wires a gate.
func NewGate(g Guard, leads LeadReader, events EventWriter, limiter Limiter, renderer Renderer, sender Sender, opts ...Option) *Gate {
	gate := &Gate{
		guard:    g,
		leads:    leads,
		events:   events,
		limiter:  limiter,
		renderer: renderer,
		sender:   sender,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(gate)
	}
	return gate
}

// Send gates and delivers one message. The returned error is reserved for
// store failures and bad templates; policy skips, throttling and provider
// failures are reported in the Outcome.
func (g *Gate) Send(ctx context.Context, req Request) (Outcome, error) {
	elig, err := g.guard.IsLeadEligible(ctx, req.LeadID)
	if err != nil {
		return Outcome{}, fmt.Errorf("check eligibility: %w", err)
	}
	if !elig.Eligible {
		return Outcome{Status: StatusSkipped, Reason: elig.Reason}, nil
	}

	lead, err := g.leads.Get(ctx, req.LeadID)
	if err != nil {
		return Outcome{}, fmt.Errorf("get lead %s: %w", req.LeadID, err)
	}

	if d := g.limiter.Check(); !d.Allowed {
		return Outcome{Status: StatusThrottled, Reason: d.Reason, Wait: d.Wait}, nil
	}

	msg, err := g.render(req, lead)
	if err != nil {
		return Outcome{}, err
	}

	res, err := g.sender.Send(ctx, msg)
	if err != nil {
		backoff := g.limiter.ReportError()
		logger.Warn("send failed", "lead_id", req.LeadID, "campaign_id", req.CampaignID, "error", err.Error())
		return Outcome{Status: StatusFailed, Reason: err.Error(), Wait: backoff}, nil
	}
	if !res.Success {
		return g.rejected(ctx, req, msg, res)
	}

	g.limiter.ReportSuccess()
	sentAt := res.SentAt
	if sentAt.IsZero() {
		sentAt = g.now()
	}
	besteffort.Do("record send", func() error {
		return g.leads.RecordSend(ctx, req.LeadID, sentAt)
	}, "lead_id", req.LeadID)
	g.appendEvent(ctx, req, domain.EventSent, sentAt)

	return Outcome{Status: StatusSent, MessageID: res.MessageID}, nil
}

func (g *Gate) render(req Request, lead *domain.Lead) (*domain.OutboundMessage, error) {
	fields := lead.MergeFields()
	subject, err := g.renderer.Render(req.Subject, fields)
	if err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}
	html, err := g.renderer.Render(req.HTML, fields)
	if err != nil {
		return nil, fmt.Errorf("render body: %w", err)
	}
	return &domain.OutboundMessage{
		LeadID:     lead.ID,
		CampaignID: req.CampaignID,
		To:         lead.Email,
		FromName:   req.FromName,
		FromEmail:  req.FromEmail,
		Subject:    subject,
		HTML:       html,
		Headers:    req.Headers,
	}, nil
}

// rejected records a recipient-level rejection as a hard or soft bounce.
// The provider itself is healthy, so the limiter is not backed off.
func (g *Gate) rejected(ctx context.Context, req Request, msg *domain.OutboundMessage, res *domain.SendResult) (Outcome, error) {
	var (
		bounce guard.BounceOutcome
		err    error
	)
	if res.Permanent {
		bounce, err = g.guard.HandleHardBounce(ctx, req.LeadID, req.CampaignID)
	} else {
		bounce, err = g.guard.HandleSoftBounce(ctx, guard.SoftBounce{
			LeadID:     req.LeadID,
			CampaignID: req.CampaignID,
			Email:      msg.To,
			Subject:    msg.Subject,
			HTML:       msg.HTML,
			Error:      res.Error,
		})
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("record bounce: %w", err)
	}
	g.appendEvent(ctx, req, domain.EventBounced, g.now())
	return Outcome{Status: StatusBounced, Reason: res.Error, Bounce: &bounce}, nil
}

func (g *Gate) appendEvent(ctx context.Context, req Request, t domain.EventType, at time.Time) {
	besteffort.Do("append event", func() error {
		return g.events.Append(ctx, &domain.Event{
			ID:         uuid.New().String(),
			LeadID:     req.LeadID,
			CampaignID: req.CampaignID,
			Type:       t,
			CreatedAt:  at,
		})
	}, "lead_id", req.LeadID, "type", string(t))
}
