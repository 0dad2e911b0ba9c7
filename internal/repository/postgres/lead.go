package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/service/guard"
)

// LeadRepo implements guard.LeadRepository and verify.RecordStore against
// PostgreSQL.
type LeadRepo struct{ db *sql.DB }

// NewLeadRepo creates a Postgres-backed lead repository.
func NewLeadRepo(db *sql.DB) *LeadRepo { return &LeadRepo{db: db} }

const leadColumns = `
	id, email, first_name, last_name, company, unsubscribed, complained_at,
	bounce_type, bounce_count, last_bounce_at, verify_result, verified_at,
	engagement_score, last_engaged_at, emails_sent, last_email_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(s rowScanner) (*domain.Lead, error) {
	l := &domain.Lead{}
	err := s.Scan(
		&l.ID, &l.Email, &l.FirstName, &l.LastName, &l.Company, &l.Unsubscribed, &l.ComplainedAt,
		&l.BounceType, &l.BounceCount, &l.LastBounceAt, &l.VerifyResult, &l.VerifiedAt,
		&l.EngagementScore, &l.LastEngagedAt, &l.EmailsSent, &l.LastEmailAt, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return l, nil
}

// isUUID reports whether id can match a UUID key. Postgres rejects any other
// text with a type error rather than finding no row.
func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *LeadRepo) Get(ctx context.Context, id string) (*domain.Lead, error) {
	if !isUUID(id) {
		return nil, guard.ErrLeadNotFound
	}
	l, err := scanLead(r.db.QueryRowContext(ctx,
		`SELECT`+leadColumns+` FROM leads WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, guard.ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

// FindMany returns the leads that exist among ids. IDs that are not UUIDs
// are left out, so callers report them as not found.
func (r *LeadRepo) FindMany(ctx context.Context, ids []string) ([]domain.Lead, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if isUUID(id) {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT`+leadColumns+` FROM leads WHERE id = ANY($1)`, pq.Array(valid))
	if err != nil {
		return nil, fmt.Errorf("find leads: %w", err)
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

func (r *LeadRepo) AddEngagement(ctx context.Context, id string, delta float64, at time.Time) (float64, error) {
	if !isUUID(id) {
		return 0, guard.ErrLeadNotFound
	}
	var score float64
	err := r.db.QueryRowContext(ctx, `
		UPDATE leads
		SET engagement_score = LEAST(100, GREATEST(0, engagement_score + $2)),
		    last_engaged_at = $3
		WHERE id = $1
		RETURNING engagement_score
	`, id, delta, at).Scan(&score)
	if err == sql.ErrNoRows {
		return 0, guard.ErrLeadNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("add engagement: %w", err)
	}
	return score, nil
}

// SetEngagementScores writes every score in one statement.
func (r *LeadRepo) SetEngagementScores(ctx context.Context, scores map[string]float64) error {
	if len(scores) == 0 {
		return nil
	}
	ids := make([]string, 0, len(scores))
	for id := range scores {
		if isUUID(id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	sort.Strings(ids)
	values := make([]float64, len(ids))
	for i, id := range ids {
		values[i] = scores[id]
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE leads AS l
		SET engagement_score = v.score
		FROM unnest($1::uuid[], $2::float8[]) AS v(id, score)
		WHERE l.id = v.id
	`, pq.Array(ids), pq.Array(values))
	if err != nil {
		return fmt.Errorf("set engagement scores: %w", err)
	}
	return nil
}

func (r *LeadRepo) MarkHardBounce(ctx context.Context, id string, at time.Time) error {
	if !isUUID(id) {
		return guard.ErrLeadNotFound
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE leads
		SET bounce_type = 'hard', bounce_count = bounce_count + 1, last_bounce_at = $2
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("mark hard bounce: %w", err)
	}
	return requireRow(res, guard.ErrLeadNotFound)
}

func (r *LeadRepo) RecordSend(ctx context.Context, id string, at time.Time) error {
	if !isUUID(id) {
		return guard.ErrLeadNotFound
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE leads
		SET emails_sent = emails_sent + 1, last_email_at = $2
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("record send: %w", err)
	}
	return requireRow(res, guard.ErrLeadNotFound)
}

func (r *LeadRepo) Stats(ctx context.Context) (domain.LeadStats, error) {
	var s domain.LeadStats
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE bounce_type = 'hard' OR bounce_count >= 3),
		       COUNT(*) FILTER (WHERE complained_at IS NOT NULL)
		FROM leads
	`).Scan(&s.Total, &s.HardBounced, &s.Complained)
	if err != nil {
		return s, fmt.Errorf("lead stats: %w", err)
	}
	return s, nil
}

// SaveVerification stores a verification outcome on the lead row.
func (r *LeadRepo) SaveVerification(ctx context.Context, leadID string, rec domain.VerificationRecord) error {
	if !isUUID(leadID) {
		return guard.ErrLeadNotFound
	}
	details, err := json.Marshal(rec.Details)
	if err != nil {
		return fmt.Errorf("encode verification details: %w", err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE leads
		SET verify_result = $2, verify_reason = $3, verify_details = $4, verified_at = $5
		WHERE id = $1
	`, leadID, string(rec.Result), rec.Reason, details, rec.CheckedAt)
	if err != nil {
		return fmt.Errorf("save verification: %w", err)
	}
	return requireRow(res, guard.ErrLeadNotFound)
}

// Unverified returns leads never verified or last verified before staleBefore,
// oldest first.
func (r *LeadRepo) Unverified(ctx context.Context, staleBefore time.Time, limit int) ([]domain.Lead, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email
		FROM leads
		WHERE verified_at IS NULL OR verified_at < $1
		ORDER BY created_at
		LIMIT $2
	`, staleBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("list unverified leads: %w", err)
	}
	defer rows.Close()

	var out []domain.Lead
	for rows.Next() {
		var l domain.Lead
		if err := rows.Scan(&l.ID, &l.Email); err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
