package guard

import (
	"context"
	"time"

	"github.com/ignite/mailguard/internal/domain"
)

// LeadRepository is the lead store contract. Counter updates must be single
// atomic statements so concurrent workers do not lose increments.
type LeadRepository interface {
	// Get returns ErrLeadNotFound if the lead does not exist.
	Get(ctx context.Context, id string) (*domain.Lead, error)

	// FindMany returns the leads that exist among ids, in any order.
	FindMany(ctx context.Context, ids []string) ([]domain.Lead, error)

	// AddEngagement adds delta to the score, clamps it to [0,100], stamps
	// last_engaged_at and returns the new score.
	AddEngagement(ctx context.Context, id string, delta float64, at time.Time) (float64, error)

	// SetEngagementScores overwrites the scores of the given leads.
	SetEngagementScores(ctx context.Context, scores map[string]float64) error

	// MarkHardBounce sets bounce_type=hard, increments bounce_count and
	// stamps last_bounce_at.
	MarkHardBounce(ctx context.Context, id string, at time.Time) error

	// RecordSend increments emails_sent and stamps last_email_at.
	RecordSend(ctx context.Context, id string, at time.Time) error

	// Stats returns list-hygiene counts across all leads.
	Stats(ctx context.Context) (domain.LeadStats, error)
}

// EventRepository is the append-only event log.
type EventRepository interface {
	Append(ctx context.Context, e *domain.Event) error

	// CountByType groups events created in [from, to) by type.
	CountByType(ctx context.Context, from, to time.Time) (domain.EventCounts, error)

	// CountByCampaign groups all events of one campaign by type.
	CountByCampaign(ctx context.Context, campaignID string) (domain.EventCounts, error)

	// EngagementSince returns opened/clicked/replied events created at or
	// after since.
	EngagementSince(ctx context.Context, since time.Time) ([]domain.Event, error)
}

// CampaignRepository is the campaign store contract.
type CampaignRepository interface {
	// Get returns ErrCampaignNotFound if the campaign does not exist.
	Get(ctx context.Context, id string) (*domain.Campaign, error)

	// TransitionStatus moves a campaign from one status to another and
	// reports whether the row was still in the from status.
	TransitionStatus(ctx context.Context, id string, from, to domain.CampaignStatus) (bool, error)

	// ListByStatus returns every campaign in the given status.
	ListByStatus(ctx context.Context, status domain.CampaignStatus) ([]domain.Campaign, error)
}

// BounceQueueRepository stores pending soft-bounce retries, one entry per
// (lead, campaign) pair.
type BounceQueueRepository interface {
	// Find returns ErrBounceEntryNotFound if no entry exists.
	Find(ctx context.Context, leadID, campaignID string) (*domain.BounceQueueEntry, error)

	// Upsert creates or replaces the entry for the entry's (lead, campaign).
	Upsert(ctx context.Context, e *domain.BounceQueueEntry) error

	// Delete removes the entry. Deleting a missing entry is not an error.
	Delete(ctx context.Context, leadID, campaignID string) error

	// Due returns entries whose next retry is at or before now.
	Due(ctx context.Context, now time.Time, limit int) ([]domain.BounceQueueEntry, error)
}

// DomainRegistry stores sending domains and their last auth check.
type DomainRegistry interface {
	// FindDomain returns ErrDomainNotFound if the domain is not registered.
	FindDomain(ctx context.Context, name string) (*domain.SendingDomain, error)

	// DefaultDomain returns the preferred verified domain, or
	// ErrDomainNotFound when none is registered.
	DefaultDomain(ctx context.Context) (*domain.SendingDomain, error)

	// SaveCheck stores the result of an SPF/DKIM/DMARC lookup.
	SaveCheck(ctx context.Context, name string, verified bool, result string, at time.Time) error
}

// SnapshotRepository stores one deliverability snapshot per UTC day.
type SnapshotRepository interface {
	// Upsert inserts or overwrites the row for s.Date.
	Upsert(ctx context.Context, s *domain.DeliverabilitySnapshot) error

	// List returns snapshots with from <= date <= to, oldest first.
	List(ctx context.Context, from, to time.Time) ([]domain.DeliverabilitySnapshot, error)
}

// TXTResolver looks up DNS TXT records. *net.Resolver satisfies it.
type TXTResolver interface {
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// Stores groups the repositories the service depends on.
type Stores struct {
	Leads     LeadRepository
	Events    EventRepository
	Campaigns CampaignRepository
	Bounces   BounceQueueRepository
	Domains   DomainRegistry
	Snapshots SnapshotRepository
}
