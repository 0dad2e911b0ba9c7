package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/mailguard/internal/config"
	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/service/guard"
	"github.com/ignite/mailguard/internal/verify"
)

type fakeGuard struct {
	snapshotDays []time.Time
	snapshotErr  error
	recomputed   int
	reports      []guard.HealthReport
	refreshed    []string
	refreshErr   map[string]error
}

func (f *fakeGuard) RecordDailySnapshot(_ context.Context, day time.Time) (*domain.DeliverabilitySnapshot, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	f.snapshotDays = append(f.snapshotDays, day)
	return &domain.DeliverabilitySnapshot{Date: guard.DayStart(day)}, nil
}

func (f *fakeGuard) RecomputeEngagementScores(context.Context) (int, error) {
	f.recomputed++
	return 42, nil
}

func (f *fakeGuard) CheckSendingCampaigns(context.Context) ([]guard.HealthReport, error) {
	return f.reports, nil
}

func (f *fakeGuard) RefreshDomainAuth(_ context.Context, name string) (domain.DomainAuth, error) {
	f.refreshed = append(f.refreshed, name)
	if err := f.refreshErr[name]; err != nil {
		return domain.DomainAuth{}, err
	}
	return domain.DomainAuth{Domain: name, Verified: true}, nil
}

type fakeArchive struct {
	saved []time.Time
	err   error
}

func (f *fakeArchive) Save(_ context.Context, s *domain.DeliverabilitySnapshot) error {
	f.saved = append(f.saved, s.Date)
	return f.err
}

type fakeDomains []string

func (f fakeDomains) Names(context.Context) ([]string, error) { return f, nil }

func fixedNow() time.Time { return time.Date(2026, 6, 10, 0, 5, 0, 0, time.UTC) }

func TestSnapshotJob(t *testing.T) {
	g := &fakeGuard{}
	arch := &fakeArchive{err: errors.New("s3 down")}
	jobs := &Jobs{Guard: g, Archive: arch, Now: fixedNow}

	require.NoError(t, jobs.Snapshot(context.Background()), "archive failure is best effort")

	yesterday := time.Date(2026, 6, 9, 0, 0, 0, 0, time.UTC)
	today := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []time.Time{yesterday, today}, g.snapshotDays)
	assert.Equal(t, []time.Time{yesterday}, arch.saved)
}

func TestSnapshotJobStoreError(t *testing.T) {
	g := &fakeGuard{snapshotErr: errors.New("db down")}
	jobs := &Jobs{Guard: g, Now: fixedNow}
	assert.Error(t, jobs.Snapshot(context.Background()))
}

func TestEngagementAndHealthJobs(t *testing.T) {
	g := &fakeGuard{reports: []guard.HealthReport{
		{CampaignID: "a", Checked: true},
		{CampaignID: "b", Checked: true, Paused: true, Reason: "Complaint rate 0.20% exceeds 0.10%"},
	}}
	jobs := &Jobs{Guard: g}

	require.NoError(t, jobs.Engagement(context.Background()))
	assert.Equal(t, 1, g.recomputed)
	require.NoError(t, jobs.HealthSweep(context.Background()))
}

func TestDomainAuthJobContinuesPastFailures(t *testing.T) {
	g := &fakeGuard{refreshErr: map[string]error{"b.io": errors.New("dns timeout")}}
	jobs := &Jobs{Guard: g, Domains: fakeDomains{"a.io", "b.io", "c.io"}}

	err := jobs.DomainAuth(context.Background())
	assert.Error(t, err)
	assert.Equal(t, []string{"a.io", "b.io", "c.io"}, g.refreshed)
}

func TestJobsRegister(t *testing.T) {
	s, _ := setupScheduler(t)
	jobs := &Jobs{
		Guard:        &fakeGuard{},
		Domains:      fakeDomains{},
		Verification: NewVerificationJob(&fakeLeads{}, &fakeBatch{}, nil, 10, time.Hour),
	}
	cfg := config.Default().Schedules
	cfg.DomainAuth = ""

	require.NoError(t, jobs.Register(s, cfg))
	registered := s.Jobs()
	assert.Contains(t, registered, JobSnapshot)
	assert.Contains(t, registered, JobVerification)
	assert.NotContains(t, registered, JobDomainAuth)
}

type fakeLeads struct {
	leads       []domain.Lead
	err         error
	staleBefore time.Time
	limit       int
}

func (f *fakeLeads) Unverified(_ context.Context, staleBefore time.Time, limit int) ([]domain.Lead, error) {
	f.staleBefore, f.limit = staleBefore, limit
	return f.leads, f.err
}

type fakeBatch struct {
	items []verify.BatchItem
	store verify.RecordStore
}

func (f *fakeBatch) VerifyBatch(_ context.Context, items []verify.BatchItem, store verify.RecordStore) ([]verify.BatchResult, error) {
	f.items, f.store = items, store
	out := make([]verify.BatchResult, len(items))
	for i, it := range items {
		out[i] = verify.BatchResult{LeadID: it.LeadID, Record: domain.VerificationRecord{Email: it.Email, Result: domain.VerifyValid}}
	}
	return out, nil
}

type nopStore struct{}

func (nopStore) SaveVerification(context.Context, string, domain.VerificationRecord) error { return nil }

func TestVerificationJob(t *testing.T) {
	leads := &fakeLeads{leads: []domain.Lead{{ID: "1", Email: "a@acme.io"}, {ID: "2", Email: "b@acme.io"}}}
	batch := &fakeBatch{}
	job := NewVerificationJob(leads, batch, nopStore{}, 0, 90*24*time.Hour)
	job.now = fixedNow

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 50, leads.limit)
	assert.Equal(t, fixedNow().Add(-90*24*time.Hour), leads.staleBefore)
	assert.Equal(t, []verify.BatchItem{{LeadID: "1", Email: "a@acme.io"}, {LeadID: "2", Email: "b@acme.io"}}, batch.items)
	assert.NotNil(t, batch.store)
	assert.True(t, job.IsHealthy())
	assert.Equal(t, fixedNow(), job.LastRunAt())
}

func TestVerificationJobQueryError(t *testing.T) {
	leads := &fakeLeads{err: errors.New("db down")}
	batch := &fakeBatch{}
	job := NewVerificationJob(leads, batch, nopStore{}, 10, time.Hour)

	assert.Error(t, job.Run(context.Background()))
	assert.False(t, job.IsHealthy())
	assert.Nil(t, batch.items)
}

func TestVerificationJobNothingToDo(t *testing.T) {
	batch := &fakeBatch{}
	job := NewVerificationJob(&fakeLeads{}, batch, nopStore{}, 10, time.Hour)

	require.NoError(t, job.Run(context.Background()))
	assert.Nil(t, batch.items)
}
