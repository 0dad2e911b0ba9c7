package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/service/guard"
)

// DomainRepo implements guard.DomainRegistry against PostgreSQL.
type DomainRepo struct {
	db        *sql.DB
	preferred string
}

// NewDomainRepo creates a Postgres-backed sending-domain registry.
func NewDomainRepo(db *sql.DB) *DomainRepo { return &DomainRepo{db: db} }

// PreferDefault makes DefaultDomain pick name when it is registered.
func (r *DomainRepo) PreferDefault(name string) *DomainRepo {
	r.preferred = strings.ToLower(name)
	return r
}

const domainColumns = `id, name, dkim_selector, verified, last_check_result, last_checked_at`

func scanDomain(s rowScanner) (*domain.SendingDomain, error) {
	d := &domain.SendingDomain{}
	if err := s.Scan(&d.ID, &d.Name, &d.DKIMSelector, &d.Verified, &d.LastCheckResult, &d.LastCheckedAt); err != nil {
		return nil, err
	}
	return d, nil
}

func (r *DomainRepo) FindDomain(ctx context.Context, name string) (*domain.SendingDomain, error) {
	d, err := scanDomain(r.db.QueryRowContext(ctx,
		`SELECT `+domainColumns+` FROM sending_domains WHERE name = $1`, strings.ToLower(name)))
	if err == sql.ErrNoRows {
		return nil, guard.ErrDomainNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find domain: %w", err)
	}
	return d, nil
}

// DefaultDomain picks the configured domain, then the flagged default, then
// any verified domain.
func (r *DomainRepo) DefaultDomain(ctx context.Context) (*domain.SendingDomain, error) {
	d, err := scanDomain(r.db.QueryRowContext(ctx, `
		SELECT `+domainColumns+`
		FROM sending_domains
		ORDER BY (name = $1) DESC, is_default DESC, verified DESC, name
		LIMIT 1
	`, r.preferred))
	if err == sql.ErrNoRows {
		return nil, guard.ErrDomainNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("default domain: %w", err)
	}
	return d, nil
}

func (r *DomainRepo) SaveCheck(ctx context.Context, name string, verified bool, result string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sending_domains
		SET verified = $2, last_check_result = $3, last_checked_at = $4
		WHERE name = $1
	`, strings.ToLower(name), verified, result, at)
	if err != nil {
		return fmt.Errorf("save domain check: %w", err)
	}
	return requireRow(res, guard.ErrDomainNotFound)
}

// Names lists every registered domain, used by the periodic auth refresh.
func (r *DomainRepo) Names(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM sending_domains ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
