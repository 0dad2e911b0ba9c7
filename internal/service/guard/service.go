package guard

import (
	"net"
	"time"
)

// Thresholds are campaign health limits in percent. A rate strictly above
// its limit pauses the campaign.
type Thresholds struct {
	BounceRate    float64 `json:"bounce_rate" yaml:"bounce_rate"`
	UnsubRate     float64 `json:"unsub_rate" yaml:"unsub_rate"`
	ComplaintRate float64 `json:"complaint_rate" yaml:"complaint_rate"`
}

// DefaultThresholds pause at 2% bounces, 0.5% unsubscribes or 0.1%
// complaints.
var DefaultThresholds = Thresholds{BounceRate: 2, UnsubRate: 0.5, ComplaintRate: 0.1}

const (
	disengagedAfter = 60 * 24 * time.Hour
	frequencyCap    = 24 * time.Hour
	disengagedSends = 5
	decayWindow     = 90 * 24 * time.Hour
	scoreWindow     = 30 * 24 * time.Hour
	maxEngagement   = 100.0
)

// Service implements the guard rules. It is safe for concurrent use; all
// state lives in the stores.
type Service struct {
	leads      LeadRepository
	events     EventRepository
	campaigns  CampaignRepository
	bounces    BounceQueueRepository
	domains    DomainRegistry
	snapshots  SnapshotRepository
	txt        TXTResolver
	thresholds Thresholds
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

// WithThresholds overrides the campaign health limits. Zero fields keep
// their defaults.
func WithThresholds(t Thresholds) Option {
	return func(s *Service) {
		if t.BounceRate > 0 {
			s.thresholds.BounceRate = t.BounceRate
		}
		if t.UnsubRate > 0 {
			s.thresholds.UnsubRate = t.UnsubRate
		}
		if t.ComplaintRate > 0 {
			s.thresholds.ComplaintRate = t.ComplaintRate
		}
	}
}

// WithTXTResolver replaces the resolver used by RefreshDomainAuth.
func WithTXTResolver(r TXTResolver) Option { return func(s *Service) { s.txt = r } }

// NewService creates a guard service over the given stores.
func NewService(stores Stores, opts ...Option) *Service {
	s := &Service{
		leads:      stores.Leads,
		events:     stores.Events,
		campaigns:  stores.Campaigns,
		bounces:    stores.Bounces,
		domains:    stores.Domains,
		snapshots:  stores.Snapshots,
		txt:        net.DefaultResolver,
		thresholds: DefaultThresholds,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Thresholds returns the active campaign health limits.
func (s *Service) Thresholds() Thresholds { return s.thresholds }

func percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
