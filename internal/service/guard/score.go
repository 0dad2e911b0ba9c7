package guard

import (
	"context"
	"fmt"

	"github.com/ignite/mailguard/internal/domain"
)

// Score factor names.
const (
	FactorBounceRate    = "Bounce Rate"
	FactorComplaintRate = "Complaint Rate"
	FactorEngagement    = "Engagement"
	FactorListHygiene   = "List Hygiene"
	FactorDomainAuth    = "Domain Auth"
)

const factorMax = 25

// ComputeScore rates sending health over the last 30 days. Four factors
// are worth up to 25 points each; Domain Auth is reported for context and
// adds nothing.
func (s *Service) ComputeScore(ctx context.Context) (domain.DeliverabilityScore, error) {
	now := s.now()
	counts, err := s.events.CountByType(ctx, now.Add(-scoreWindow), now)
	if err != nil {
		return domain.DeliverabilityScore{}, fmt.Errorf("count events: %w", err)
	}
	stats, err := s.leads.Stats(ctx)
	if err != nil {
		return domain.DeliverabilityScore{}, fmt.Errorf("lead stats: %w", err)
	}

	sent := counts[domain.EventSent]
	factors := []domain.ScoreFactor{
		bounceFactor(percent(counts[domain.EventBounced], sent)),
		complaintFactor(percent(counts[domain.EventComplained], sent)),
		engagementFactor(percent(counts[domain.EventOpened], sent)),
		hygieneFactor(percent(stats.HardBounced+stats.Complained, stats.Total)),
		s.domainAuthFactor(ctx),
	}

	total := 0
	for _, f := range factors {
		total += f.Score
	}
	if total > 100 {
		total = 100
	}
	return domain.DeliverabilityScore{
		Total:      total,
		Rating:     Rating(total),
		Factors:    factors,
		ComputedAt: now,
	}, nil
}

// Rating maps a total score to its band.
func Rating(total int) string {
	switch {
	case total >= 80:
		return "Excellent"
	case total >= 60:
		return "Good"
	case total >= 40:
		return "Fair"
	default:
		return "Poor"
	}
}

func bounceFactor(rate float64) domain.ScoreFactor {
	f := domain.ScoreFactor{Name: FactorBounceRate, MaxScore: factorMax,
		Detail: fmt.Sprintf("%.2f%% of sends bounced", rate)}
	switch {
	case rate <= 1:
		f.Score = 25
	case rate <= 2:
		f.Score = 20
	case rate <= 5:
		f.Score = 10
	}
	f.Status = status(rate <= 2, rate <= 5)
	return f
}

func complaintFactor(rate float64) domain.ScoreFactor {
	f := domain.ScoreFactor{Name: FactorComplaintRate, MaxScore: factorMax,
		Detail: fmt.Sprintf("%.3f%% of sends marked as spam", rate)}
	switch {
	case rate <= 0.05:
		f.Score = 25
	case rate <= 0.1:
		f.Score = 20
	case rate <= 0.3:
		f.Score = 10
	}
	f.Status = status(rate <= 0.1, rate <= 0.3)
	return f
}

func engagementFactor(openRate float64) domain.ScoreFactor {
	f := domain.ScoreFactor{Name: FactorEngagement, MaxScore: factorMax,
		Detail: fmt.Sprintf("%.1f%% open rate", openRate)}
	switch {
	case openRate >= 20:
		f.Score = 25
	case openRate >= 10:
		f.Score = 15
	case openRate >= 5:
		f.Score = 8
	}
	f.Status = status(openRate >= 20, openRate >= 10)
	return f
}

func hygieneFactor(badPct float64) domain.ScoreFactor {
	f := domain.ScoreFactor{Name: FactorListHygiene, MaxScore: factorMax,
		Detail: fmt.Sprintf("%.1f%% of leads hard-bounced or complained", badPct)}
	switch {
	case badPct <= 2:
		f.Score = 25
	case badPct <= 5:
		f.Score = 20
	case badPct <= 10:
		f.Score = 10
	}
	f.Status = status(badPct <= 5, badPct <= 10)
	return f
}

func (s *Service) domainAuthFactor(ctx context.Context) domain.ScoreFactor {
	f := domain.ScoreFactor{Name: FactorDomainAuth}
	auth, err := s.CheckDomainAuth(ctx, "")
	switch {
	case err != nil:
		f.Status = domain.StatusWarning
		f.Detail = "Domain authentication could not be checked"
	case auth.Verified:
		f.Status = domain.StatusGood
		f.Detail = "SPF, DKIM and DMARC verified"
	default:
		f.Status = domain.StatusDanger
		f.Detail = fmt.Sprintf("Missing: %v", auth.Missing)
	}
	return f
}

func status(good, warning bool) domain.FactorStatus {
	switch {
	case good:
		return domain.StatusGood
	case warning:
		return domain.StatusWarning
	default:
		return domain.StatusDanger
	}
}
