package guard_test

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/service/guard"
)

// memStore implements every guard repository in memory.
type memStore struct {
	mu        sync.Mutex
	leads     map[string]*domain.Lead
	events    []domain.Event
	campaigns map[string]*domain.Campaign
	bounces   map[string]*domain.BounceQueueEntry // keyed by lead|campaign
	domains   map[string]*domain.SendingDomain
	snapshots map[string]domain.DeliverabilitySnapshot // keyed by date
	upserts   int

	failFindMany error
}

func newMemStore() *memStore {
	return &memStore{
		leads:     make(map[string]*domain.Lead),
		campaigns: make(map[string]*domain.Campaign),
		bounces:   make(map[string]*domain.BounceQueueEntry),
		domains:   make(map[string]*domain.SendingDomain),
		snapshots: make(map[string]domain.DeliverabilitySnapshot),
	}
}

func (m *memStore) stores() guard.Stores {
	return guard.Stores{Leads: m, Events: m, Campaigns: campaignRepo{m}, Bounces: m, Domains: m, Snapshots: snapshotRepo{m}}
}

func (m *memStore) addLead(l domain.Lead) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leads[l.ID] = &l
}

func (m *memStore) lead(id string) domain.Lead {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.leads[id]
}

func (m *memStore) addEvents(leadID, campaignID string, t domain.EventType, n int, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		m.events = append(m.events, domain.Event{LeadID: leadID, CampaignID: campaignID, Type: t, CreatedAt: at})
	}
}

// LeadRepository

func (m *memStore) Get(_ context.Context, id string) (*domain.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return nil, guard.ErrLeadNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memStore) FindMany(_ context.Context, ids []string) ([]domain.Lead, error) {
	if m.failFindMany != nil {
		return nil, m.failFindMany
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Lead
	for _, id := range ids {
		if l, ok := m.leads[id]; ok {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *memStore) AddEngagement(_ context.Context, id string, delta float64, at time.Time) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return 0, guard.ErrLeadNotFound
	}
	l.EngagementScore = math.Max(0, math.Min(100, l.EngagementScore+delta))
	l.LastEngagedAt = &at
	return l.EngagementScore, nil
}

func (m *memStore) SetEngagementScores(_ context.Context, scores map[string]float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range scores {
		if l, ok := m.leads[id]; ok {
			l.EngagementScore = s
		}
	}
	return nil
}

func (m *memStore) MarkHardBounce(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return guard.ErrLeadNotFound
	}
	l.BounceType = domain.BounceHard
	l.BounceCount++
	l.LastBounceAt = &at
	return nil
}

func (m *memStore) RecordSend(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.leads[id]
	if !ok {
		return guard.ErrLeadNotFound
	}
	l.EmailsSent++
	l.LastEmailAt = &at
	return nil
}

func (m *memStore) Stats(_ context.Context) (domain.LeadStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var s domain.LeadStats
	for _, l := range m.leads {
		s.Total++
		if l.IsHardBounced() {
			s.HardBounced++
		}
		if l.ComplainedAt != nil {
			s.Complained++
		}
	}
	return s, nil
}

// EventRepository

func (m *memStore) Append(_ context.Context, e *domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return nil
}

func (m *memStore) CountByType(_ context.Context, from, to time.Time) (domain.EventCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := domain.EventCounts{}
	for _, e := range m.events {
		if !e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			out[e.Type]++
		}
	}
	return out, nil
}

func (m *memStore) CountByCampaign(_ context.Context, campaignID string) (domain.EventCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := domain.EventCounts{}
	for _, e := range m.events {
		if e.CampaignID == campaignID {
			out[e.Type]++
		}
	}
	return out, nil
}

func (m *memStore) EngagementSince(_ context.Context, since time.Time) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Event
	for _, e := range m.events {
		if domain.EngagementWeight(e.Type) > 0 && !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out, nil
}

// CampaignRepository. Get and Upsert names collide across repositories, so
// campaigns and snapshots are served through thin wrappers.

type campaignRepo struct{ *memStore }

func (c campaignRepo) Get(_ context.Context, id string) (*domain.Campaign, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	camp, ok := c.campaigns[id]
	if !ok {
		return nil, guard.ErrCampaignNotFound
	}
	cp := *camp
	return &cp, nil
}

func (m *memStore) TransitionStatus(_ context.Context, id string, from, to domain.CampaignStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

func (m *memStore) ListByStatus(_ context.Context, status domain.CampaignStatus) ([]domain.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Campaign
	for _, c := range m.campaigns {
		if c.Status == status {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// BounceQueueRepository

func bounceKey(leadID, campaignID string) string { return leadID + "|" + campaignID }

func (m *memStore) Find(_ context.Context, leadID, campaignID string) (*domain.BounceQueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.bounces[bounceKey(leadID, campaignID)]
	if !ok {
		return nil, guard.ErrBounceEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memStore) Upsert(_ context.Context, e *domain.BounceQueueEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.bounces[bounceKey(e.LeadID, e.CampaignID)] = &cp
	return nil
}

func (m *memStore) Delete(_ context.Context, leadID, campaignID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bounces, bounceKey(leadID, campaignID))
	return nil
}

func (m *memStore) Due(_ context.Context, now time.Time, limit int) ([]domain.BounceQueueEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.BounceQueueEntry
	for _, e := range m.bounces {
		if !e.NextRetry.After(now) {
			out = append(out, *e)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DomainRegistry

func (m *memStore) FindDomain(_ context.Context, name string) (*domain.SendingDomain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.domains[name]
	if !ok {
		return nil, guard.ErrDomainNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) DefaultDomain(_ context.Context) (*domain.SendingDomain, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.domains))
	for n := range m.domains {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if m.domains[n].Verified {
			cp := *m.domains[n]
			return &cp, nil
		}
	}
	if len(names) > 0 {
		cp := *m.domains[names[0]]
		return &cp, nil
	}
	return nil, guard.ErrDomainNotFound
}

func (m *memStore) SaveCheck(_ context.Context, name string, verified bool, result string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.domains[name]
	if !ok {
		return guard.ErrDomainNotFound
	}
	d.Verified = verified
	d.LastCheckResult = result
	d.LastCheckedAt = &at
	return nil
}

type snapshotRepo struct{ *memStore }

func (s snapshotRepo) Upsert(_ context.Context, snap *domain.DeliverabilitySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	s.snapshots[snap.Date.Format("2006-01-02")] = *snap
	return nil
}

func (m *memStore) List(_ context.Context, from, to time.Time) ([]domain.DeliverabilitySnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.DeliverabilitySnapshot
	for _, s := range m.snapshots {
		if !s.Date.Before(from) && !s.Date.After(to) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// txtResolver serves canned TXT records.
type txtResolver map[string][]string

func (r txtResolver) LookupTXT(_ context.Context, name string) ([]string, error) {
	recs, ok := r[name]
	if !ok {
		return nil, errors.New("no such host")
	}
	return recs, nil
}
