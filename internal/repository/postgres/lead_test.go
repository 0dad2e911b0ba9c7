package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/service/guard"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

const (
	leadID      = "7d9f2c1e-4b3a-4c5d-8e6f-1a2b3c4d5e6f"
	otherLeadID = "0b8e5a4d-3c2f-4e1a-9b7c-6d5e4f3a2b1c"
	missingID   = "00000000-0000-4000-8000-000000000000"
)

var leadCols = []string{
	"id", "email", "first_name", "last_name", "company", "unsubscribed", "complained_at",
	"bounce_type", "bounce_count", "last_bounce_at", "verify_result", "verified_at",
	"engagement_score", "last_engaged_at", "emails_sent", "last_email_at", "created_at",
}

func TestLeadRepo_Get(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLeadRepo(db)
	created := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	engaged := created.Add(48 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("FROM leads WHERE id = $1")).
		WithArgs(leadID).
		WillReturnRows(sqlmock.NewRows(leadCols).AddRow(
			leadID, "ann@example.com", "Ann", "Lee", "Acme", false, nil,
			"soft", 1, nil, "valid", nil,
			42.5, engaged, 7, nil, created,
		))

	l, err := repo.Get(context.Background(), leadID)
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", l.Email)
	assert.Equal(t, domain.BounceSoft, l.BounceType)
	assert.Equal(t, domain.VerifyValid, l.VerifyResult)
	assert.Nil(t, l.ComplainedAt)
	require.NotNil(t, l.LastEngagedAt)
	assert.True(t, engaged.Equal(*l.LastEngagedAt))
	assert.Equal(t, 7, l.EmailsSent)
}

func TestLeadRepo_GetNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLeadRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM leads WHERE id = $1")).
		WithArgs(missingID).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), missingID)
	assert.ErrorIs(t, err, guard.ErrLeadNotFound)
}

func TestLeadRepo_FindManyEmpty(t *testing.T) {
	db, _ := newMock(t)
	leads, err := NewLeadRepo(db).FindMany(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, leads)
}

func TestLeadRepo_FindMany(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLeadRepo(db)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ANY($1)")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(leadCols).
			AddRow(leadID, "a@example.com", "", "", "", false, nil, "", 0, nil, "", nil, 0.0, nil, 0, nil, now).
			AddRow(otherLeadID, "b@example.com", "", "", "", true, nil, "", 0, nil, "", nil, 0.0, nil, 0, nil, now))

	leads, err := repo.FindMany(context.Background(), []string{leadID, otherLeadID, missingID})
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.True(t, leads[1].Unsubscribed)
}

func TestLeadRepo_GetNonUUIDIsNotFound(t *testing.T) {
	db, _ := newMock(t)

	_, err := NewLeadRepo(db).Get(context.Background(), "lead-1")
	assert.ErrorIs(t, err, guard.ErrLeadNotFound)
}

func TestLeadRepo_FindManySkipsNonUUIDs(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLeadRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ANY($1)")).
		WithArgs(pq.Array([]string{leadID})).
		WillReturnRows(sqlmock.NewRows(leadCols).
			AddRow(leadID, "a@example.com", "", "", "", false, nil, "", 0, nil, "", nil, 0.0, nil, 0, nil, time.Now()))

	leads, err := repo.FindMany(context.Background(), []string{"not-a-uuid", leadID, "42"})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, leadID, leads[0].ID)

	// Nothing left to query.
	leads, err = repo.FindMany(context.Background(), []string{"x", "y"})
	require.NoError(t, err)
	assert.Empty(t, leads)
}

func TestLeadRepo_WritesRejectNonUUIDs(t *testing.T) {
	db, _ := newMock(t)
	repo := NewLeadRepo(db)
	ctx, at := context.Background(), time.Now()

	_, err := repo.AddEngagement(ctx, "x", 10, at)
	assert.ErrorIs(t, err, guard.ErrLeadNotFound)
	assert.ErrorIs(t, repo.MarkHardBounce(ctx, "x", at), guard.ErrLeadNotFound)
	assert.ErrorIs(t, repo.RecordSend(ctx, "x", at), guard.ErrLeadNotFound)
	assert.ErrorIs(t, repo.SaveVerification(ctx, "x", domain.VerificationRecord{}), guard.ErrLeadNotFound)
	assert.NoError(t, repo.SetEngagementScores(ctx, map[string]float64{"x": 10}))
}

func TestLeadRepo_AddEngagementClampsInSQL(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLeadRepo(db)
	at := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("LEAST(100, GREATEST(0, engagement_score + $2))")).
		WithArgs(leadID, 25.0, at).
		WillReturnRows(sqlmock.NewRows([]string{"engagement_score"}).AddRow(100.0))

	score, err := repo.AddEngagement(context.Background(), leadID, 25, at)
	require.NoError(t, err)
	assert.Equal(t, 100.0, score)
}

func TestLeadRepo_AddEngagementNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("UPDATE leads").WillReturnError(sql.ErrNoRows)

	_, err := NewLeadRepo(db).AddEngagement(context.Background(), missingID, 10, time.Now())
	assert.ErrorIs(t, err, guard.ErrLeadNotFound)
}

func TestLeadRepo_SetEngagementScores(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLeadRepo(db)

	mock.ExpectExec(regexp.QuoteMeta("FROM unnest($1::uuid[], $2::float8[])")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 2))

	err := repo.SetEngagementScores(context.Background(), map[string]float64{leadID: 10, otherLeadID: 0})
	assert.NoError(t, err)

	// No statement for an empty map.
	assert.NoError(t, repo.SetEngagementScores(context.Background(), nil))
}

func TestLeadRepo_MarkHardBounce(t *testing.T) {
	db, mock := newMock(t)
	repo := NewLeadRepo(db)
	at := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("bounce_count = bounce_count + 1")).
		WithArgs(leadID, at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("bounce_count = bounce_count + 1")).
		WithArgs(missingID, at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.MarkHardBounce(context.Background(), leadID, at))
	assert.ErrorIs(t, repo.MarkHardBounce(context.Background(), missingID, at), guard.ErrLeadNotFound)
}

func TestLeadRepo_RecordSend(t *testing.T) {
	db, mock := newMock(t)
	at := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("emails_sent = emails_sent + 1")).
		WithArgs(leadID, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, NewLeadRepo(db).RecordSend(context.Background(), leadID, at))
}

func TestLeadRepo_Stats(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM leads")).
		WillReturnRows(sqlmock.NewRows([]string{"total", "hard", "complained"}).AddRow(200, 4, 1))

	s, err := NewLeadRepo(db).Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.LeadStats{Total: 200, HardBounced: 4, Complained: 1}, s)
}

func TestLeadRepo_SaveVerification(t *testing.T) {
	db, mock := newMock(t)
	checked := time.Now()
	rec := domain.VerificationRecord{
		Email:     "a@example.com",
		Result:    domain.VerifyRisky,
		Reason:    "Role account",
		Details:   domain.VerificationDetails{Syntax: true, MXExists: true, RoleAccount: true},
		CheckedAt: checked,
	}

	mock.ExpectExec(regexp.QuoteMeta("SET verify_result = $2")).
		WithArgs(leadID, "risky", "Role account", sqlmock.AnyArg(), checked).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, NewLeadRepo(db).SaveVerification(context.Background(), leadID, rec))
}

func TestLeadRepo_Unverified(t *testing.T) {
	db, mock := newMock(t)
	stale := time.Now().Add(-30 * 24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE verified_at IS NULL OR verified_at < $1")).
		WithArgs(stale, 100).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email"}).
			AddRow("a", "a@example.com").
			AddRow("b", "b@example.com"))

	leads, err := NewLeadRepo(db).Unverified(context.Background(), stale, 0)
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "b@example.com", leads[1].Email)
}
