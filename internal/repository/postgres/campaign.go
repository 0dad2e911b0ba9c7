package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/service/guard"
)

// CampaignRepo implements guard.CampaignRepository against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

// NewCampaignRepo creates a Postgres-backed campaign repository.
func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

func (r *CampaignRepo) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	if !isUUID(id) {
		return nil, guard.ErrCampaignNotFound
	}
	c := &domain.Campaign{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, status, sent_to, from_email, updated_at
		FROM campaigns
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Status, &c.SentTo, &c.FromEmail, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, guard.ErrCampaignNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

// TransitionStatus is a compare-and-set on the status column.
func (r *CampaignRepo) TransitionStatus(ctx context.Context, id string, from, to domain.CampaignStatus) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`, id, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("transition campaign: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *CampaignRepo) ListByStatus(ctx context.Context, status domain.CampaignStatus) ([]domain.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, status, sent_to, from_email, updated_at
		FROM campaigns
		WHERE status = $1
		ORDER BY updated_at
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		var c domain.Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.Status, &c.SentTo, &c.FromEmail, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
