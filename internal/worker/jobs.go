package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/ignite/mailguard/internal/config"
	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/besteffort"
	"github.com/ignite/mailguard/internal/pkg/logger"
	"github.com/ignite/mailguard/internal/service/guard"
)

// Job names, also used as lock keys.
const (
	JobSnapshot     = "daily_snapshot"
	JobEngagement   = "engagement_recompute"
	JobHealth       = "campaign_health"
	JobDomainAuth   = "domain_auth"
	JobVerification = "verification"
)

// GuardJobs is the part of guard.Service the scheduled jobs drive.
type GuardJobs interface {
	RecordDailySnapshot(ctx context.Context, day time.Time) (*domain.DeliverabilitySnapshot, error)
	RecomputeEngagementScores(ctx context.Context) (int, error)
	CheckSendingCampaigns(ctx context.Context) ([]guard.HealthReport, error)
	RefreshDomainAuth(ctx context.Context, name string) (domain.DomainAuth, error)
}

// Archiver copies a snapshot to long-term storage.
type Archiver interface {
	Save(ctx context.Context, snap *domain.DeliverabilitySnapshot) error
}

// DomainLister lists registered sending domains.
type DomainLister interface {
	Names(ctx context.Context) ([]string, error)
}

// Jobs builds the scheduled jobs. Archive and Verification may be nil.
type Jobs struct {
	Guard        GuardJobs
	Domains      DomainLister
	Archive      Archiver
	Verification *VerificationJob
	Now          func() time.Time
}

func (j *Jobs) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

// Register adds every job to s using the configured schedules.
func (j *Jobs) Register(s *Scheduler, cfg config.SchedulesConfig) error {
	jobs := []Job{
		{Name: JobSnapshot, Schedule: cfg.Snapshot, Run: j.Snapshot},
		{Name: JobEngagement, Schedule: cfg.EngagementRecompute, Run: j.Engagement},
		{Name: JobHealth, Schedule: cfg.CampaignHealth, Run: j.HealthSweep},
		{Name: JobDomainAuth, Schedule: cfg.DomainAuth, Run: j.DomainAuth},
	}
	if j.Verification != nil {
		jobs = append(jobs, Job{Name: JobVerification, Schedule: cfg.Verification, Run: j.Verification.Run})
	}
	for _, job := range jobs {
		if err := s.Register(job); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot records yesterday's final snapshot and today's running one, and
// archives yesterday's.
func (j *Jobs) Snapshot(ctx context.Context) error {
	today := guard.DayStart(j.now())
	yesterday := today.AddDate(0, 0, -1)

	snap, err := j.Guard.RecordDailySnapshot(ctx, yesterday)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", yesterday.Format("2006-01-02"), err)
	}
	if j.Archive != nil {
		besteffort.Do("archive snapshot", func() error {
			return j.Archive.Save(ctx, snap)
		}, "date", yesterday.Format("2006-01-02"))
	}

	if _, err := j.Guard.RecordDailySnapshot(ctx, today); err != nil {
		return fmt.Errorf("snapshot %s: %w", today.Format("2006-01-02"), err)
	}
	return nil
}

// Engagement rebuilds every lead's decayed engagement score.
func (j *Jobs) Engagement(ctx context.Context) error {
	n, err := j.Guard.RecomputeEngagementScores(ctx)
	if err != nil {
		return err
	}
	logger.Info("engagement scores recomputed", "leads", n)
	return nil
}

// HealthSweep checks all sending campaigns.
func (j *Jobs) HealthSweep(ctx context.Context) error {
	reports, err := j.Guard.CheckSendingCampaigns(ctx)
	if err != nil {
		return err
	}
	paused := 0
	for _, r := range reports {
		if r.Paused {
			paused++
			logger.Warn("campaign auto-paused", "campaign_id", r.CampaignID, "reason", r.Reason)
		}
	}
	logger.Info("campaign health sweep", "checked", len(reports), "paused", paused)
	return nil
}

// DomainAuth refreshes SPF, DKIM and DMARC for every registered domain. One
// failing domain does not stop the rest.
func (j *Jobs) DomainAuth(ctx context.Context) error {
	names, err := j.Domains.Names(ctx)
	if err != nil {
		return fmt.Errorf("list domains: %w", err)
	}
	failed := 0
	for _, name := range names {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		res := besteffort.Do("refresh domain auth", func() error {
			_, err := j.Guard.RefreshDomainAuth(ctx, name)
			return err
		}, "domain", name)
		if !res.OK() {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("domain auth refresh failed for %d of %d domains", failed, len(names))
	}
	return nil
}
