package guard

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ignite/mailguard/internal/domain"
)

// RecordDailySnapshot recomputes the aggregate row for the UTC day holding
// day and upserts it. Calling it again for the same day overwrites the row
// with fresh values.
func (s *Service) RecordDailySnapshot(ctx context.Context, day time.Time) (*domain.DeliverabilitySnapshot, error) {
	start := DayStart(day)
	counts, err := s.events.CountByType(ctx, start, start.Add(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("count events for %s: %w", start.Format("2006-01-02"), err)
	}
	score, err := s.ComputeScore(ctx)
	if err != nil {
		return nil, err
	}

	sent := counts[domain.EventSent]
	snap := &domain.DeliverabilitySnapshot{
		Date:          start,
		Sent:          sent,
		Opened:        counts[domain.EventOpened],
		Clicked:       counts[domain.EventClicked],
		Replied:       counts[domain.EventReplied],
		Bounced:       counts[domain.EventBounced],
		Complained:    counts[domain.EventComplained],
		Unsubscribed:  counts[domain.EventUnsubscribed],
		BounceRate:    round2(percent(counts[domain.EventBounced], sent)),
		ComplaintRate: round2(percent(counts[domain.EventComplained], sent)),
		UnsubRate:     round2(percent(counts[domain.EventUnsubscribed], sent)),
		OpenRate:      round2(percent(counts[domain.EventOpened], sent)),
		Score:         score.Total,
		UpdatedAt:     s.now(),
	}
	if err := s.snapshots.Upsert(ctx, snap); err != nil {
		return nil, fmt.Errorf("upsert snapshot: %w", err)
	}
	return snap, nil
}

// Snapshots returns the stored daily rows for the last n days, oldest
// first.
func (s *Service) Snapshots(ctx context.Context, days int) ([]domain.DeliverabilitySnapshot, error) {
	if days <= 0 {
		days = 30
	}
	to := DayStart(s.now())
	rows, err := s.snapshots.List(ctx, to.AddDate(0, 0, -(days-1)), to)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	return rows, nil
}

// DayStart truncates t to midnight UTC.
func DayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
