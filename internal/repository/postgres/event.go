package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/mailguard/internal/domain"
)

// EventRepo implements guard.EventRepository against PostgreSQL.
type EventRepo struct{ db *sql.DB }

// NewEventRepo creates a Postgres-backed event log.
func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e *domain.Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO lead_events (id, lead_id, campaign_id, type, created_at)
		VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5)
	`, e.ID, e.LeadID, e.CampaignID, string(e.Type), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (r *EventRepo) CountByType(ctx context.Context, from, to time.Time) (domain.EventCounts, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT type, COUNT(*)
		FROM lead_events
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY type
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	return scanCounts(rows)
}

func (r *EventRepo) CountByCampaign(ctx context.Context, campaignID string) (domain.EventCounts, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT type, COUNT(*)
		FROM lead_events
		WHERE campaign_id = $1
		GROUP BY type
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("count campaign events: %w", err)
	}
	return scanCounts(rows)
}

func (r *EventRepo) EngagementSince(ctx context.Context, since time.Time) ([]domain.Event, error) {
	types := make([]string, len(domain.EngagementEvents))
	for i, t := range domain.EngagementEvents {
		types[i] = string(t)
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, lead_id, COALESCE(campaign_id::text, ''), type, created_at
		FROM lead_events
		WHERE created_at >= $1 AND type = ANY($2)
		ORDER BY created_at
	`, since, pq.Array(types))
	if err != nil {
		return nil, fmt.Errorf("list engagement events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.LeadID, &e.CampaignID, &e.Type, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanCounts(rows *sql.Rows) (domain.EventCounts, error) {
	defer rows.Close()
	counts := domain.EventCounts{}
	for rows.Next() {
		var t domain.EventType
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts[t] = n
	}
	return counts, rows.Err()
}
