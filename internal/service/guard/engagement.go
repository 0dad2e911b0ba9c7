package guard

import (
	"context"
	"fmt"
	"math"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/logger"
)

// RecordEngagement adds the event's weight to the lead's score and returns
// the new, clamped score.
func (s *Service) RecordEngagement(ctx context.Context, leadID string, t domain.EventType) (float64, error) {
	weight := domain.EngagementWeight(t)
	if weight == 0 {
		return 0, fmt.Errorf("%w: %q", ErrNotEngagement, t)
	}
	score, err := s.leads.AddEngagement(ctx, leadID, weight, s.now())
	if err != nil {
		return 0, fmt.Errorf("add engagement for %s: %w", leadID, err)
	}
	return score, nil
}

// RecomputeEngagementScores rebuilds scores from the last 90 days of
// engagement events with linear decay. Leads without a positive
// contribution in the window keep their current score. It returns the
// number of leads updated.
func (s *Service) RecomputeEngagementScores(ctx context.Context) (int, error) {
	now := s.now()
	events, err := s.events.EngagementSince(ctx, now.Add(-decayWindow))
	if err != nil {
		return 0, fmt.Errorf("load engagement events: %w", err)
	}

	scores := make(map[string]float64)
	for _, e := range events {
		c := domain.EngagementWeight(e.Type) * Decay(now.Sub(e.CreatedAt).Hours()/24)
		if c <= 0 {
			continue
		}
		scores[e.LeadID] += c
	}
	for id, v := range scores {
		scores[id] = math.Min(maxEngagement, v)
	}
	if len(scores) == 0 {
		return 0, nil
	}

	if err := s.leads.SetEngagementScores(ctx, scores); err != nil {
		return 0, fmt.Errorf("store engagement scores: %w", err)
	}
	logger.Info("engagement scores recomputed", "events", len(events), "leads", len(scores))
	return len(scores), nil
}

// Decay is the weight multiplier for an event daysAgo days old: 1 today,
// falling linearly to 0 at 90 days.
func Decay(daysAgo float64) float64 {
	if daysAgo < 0 {
		daysAgo = 0
	}
	return math.Max(0, 1-daysAgo/90)
}
