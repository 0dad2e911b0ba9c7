package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/mailguard/internal/domain"
)

// SnapshotRepo implements guard.SnapshotRepository against PostgreSQL.
type SnapshotRepo struct{ db *sql.DB }

// NewSnapshotRepo creates a Postgres-backed snapshot repository.
func NewSnapshotRepo(db *sql.DB) *SnapshotRepo { return &SnapshotRepo{db: db} }

const snapshotColumns = `id, date, sent, opened, clicked, replied, bounced, complained, unsubscribed,
	bounce_rate, complaint_rate, unsub_rate, open_rate, score, updated_at`

// Upsert keys on the snapshot date. On conflict the existing row keeps its id.
func (r *SnapshotRepo) Upsert(ctx context.Context, s *domain.DeliverabilitySnapshot) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	s.UpdatedAt = time.Now().UTC()

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO deliverability_snapshots (`+snapshotColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (date) DO UPDATE SET
			sent = EXCLUDED.sent,
			opened = EXCLUDED.opened,
			clicked = EXCLUDED.clicked,
			replied = EXCLUDED.replied,
			bounced = EXCLUDED.bounced,
			complained = EXCLUDED.complained,
			unsubscribed = EXCLUDED.unsubscribed,
			bounce_rate = EXCLUDED.bounce_rate,
			complaint_rate = EXCLUDED.complaint_rate,
			unsub_rate = EXCLUDED.unsub_rate,
			open_rate = EXCLUDED.open_rate,
			score = EXCLUDED.score,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`, s.ID, s.Date, s.Sent, s.Opened, s.Clicked, s.Replied, s.Bounced, s.Complained, s.Unsubscribed,
		s.BounceRate, s.ComplaintRate, s.UnsubRate, s.OpenRate, s.Score, s.UpdatedAt).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepo) List(ctx context.Context, from, to time.Time) ([]domain.DeliverabilitySnapshot, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+snapshotColumns+`
		FROM deliverability_snapshots
		WHERE date >= $1 AND date <= $2
		ORDER BY date
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []domain.DeliverabilitySnapshot
	for rows.Next() {
		var s domain.DeliverabilitySnapshot
		err := rows.Scan(&s.ID, &s.Date, &s.Sent, &s.Opened, &s.Clicked, &s.Replied, &s.Bounced,
			&s.Complained, &s.Unsubscribed, &s.BounceRate, &s.ComplaintRate, &s.UnsubRate,
			&s.OpenRate, &s.Score, &s.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
