package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/service/guard"
)

// BounceQueueRepo implements guard.BounceQueueRepository against PostgreSQL.
type BounceQueueRepo struct{ db *sql.DB }

// NewBounceQueueRepo creates a Postgres-backed soft-bounce queue.
func NewBounceQueueRepo(db *sql.DB) *BounceQueueRepo { return &BounceQueueRepo{db: db} }

const bounceColumns = `id, lead_id, campaign_id, email, subject, html, retries, next_retry, error, created_at, updated_at`

func scanBounce(s rowScanner) (*domain.BounceQueueEntry, error) {
	e := &domain.BounceQueueEntry{}
	err := s.Scan(&e.ID, &e.LeadID, &e.CampaignID, &e.Email, &e.Subject, &e.HTML,
		&e.Retries, &e.NextRetry, &e.Error, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *BounceQueueRepo) Find(ctx context.Context, leadID, campaignID string) (*domain.BounceQueueEntry, error) {
	e, err := scanBounce(r.db.QueryRowContext(ctx,
		`SELECT `+bounceColumns+` FROM bounce_queue WHERE lead_id = $1 AND campaign_id = $2`,
		leadID, campaignID))
	if err == sql.ErrNoRows {
		return nil, guard.ErrBounceEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find bounce entry: %w", err)
	}
	return e, nil
}

func (r *BounceQueueRepo) Upsert(ctx context.Context, e *domain.BounceQueueEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bounce_queue (`+bounceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (lead_id, campaign_id) DO UPDATE SET
			email = EXCLUDED.email,
			subject = EXCLUDED.subject,
			html = EXCLUDED.html,
			retries = EXCLUDED.retries,
			next_retry = EXCLUDED.next_retry,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at
	`, e.ID, e.LeadID, e.CampaignID, e.Email, e.Subject, e.HTML,
		e.Retries, e.NextRetry, e.Error, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert bounce entry: %w", err)
	}
	return nil
}

func (r *BounceQueueRepo) Delete(ctx context.Context, leadID, campaignID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM bounce_queue WHERE lead_id = $1 AND campaign_id = $2`, leadID, campaignID)
	if err != nil {
		return fmt.Errorf("delete bounce entry: %w", err)
	}
	return nil
}

func (r *BounceQueueRepo) Due(ctx context.Context, now time.Time, limit int) ([]domain.BounceQueueEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+bounceColumns+` FROM bounce_queue WHERE next_retry <= $1 ORDER BY next_retry LIMIT $2`,
		now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due bounces: %w", err)
	}
	defer rows.Close()

	var out []domain.BounceQueueEntry
	for rows.Next() {
		e, err := scanBounce(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bounce entry: %w", err)
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}
