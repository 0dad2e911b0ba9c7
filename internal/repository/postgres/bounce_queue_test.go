package postgres

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/service/guard"
)

var bounceCols = []string{"id", "lead_id", "campaign_id", "email", "subject", "html",
	"retries", "next_retry", "error", "created_at", "updated_at"}

func TestBounceQueueRepo_FindNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE lead_id = $1 AND campaign_id = $2")).
		WithArgs("lead-1", "camp-1").
		WillReturnError(sql.ErrNoRows)

	_, err := NewBounceQueueRepo(db).Find(context.Background(), "lead-1", "camp-1")
	assert.ErrorIs(t, err, guard.ErrBounceEntryNotFound)
}

func TestBounceQueueRepo_Upsert(t *testing.T) {
	db, mock := newMock(t)
	next := time.Now().Add(time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (lead_id, campaign_id) DO UPDATE")).
		WithArgs(sqlmock.AnyArg(), "lead-1", "camp-1", "a@example.com", "Hi", "<p>Hi</p>",
			1, next, "mailbox full", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	e := &domain.BounceQueueEntry{
		LeadID: "lead-1", CampaignID: "camp-1", Email: "a@example.com",
		Subject: "Hi", HTML: "<p>Hi</p>", Retries: 1, NextRetry: next, Error: "mailbox full",
	}
	require.NoError(t, NewBounceQueueRepo(db).Upsert(context.Background(), e))
	assert.NotEmpty(t, e.ID)
}

func TestBounceQueueRepo_Delete(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM bounce_queue")).
		WithArgs("lead-1", "").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, NewBounceQueueRepo(db).Delete(context.Background(), "lead-1", ""))
}

func TestBounceQueueRepo_Due(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE next_retry <= $1")).
		WithArgs(now, 50).
		WillReturnRows(sqlmock.NewRows(bounceCols).
			AddRow("b1", "lead-1", "camp-1", "a@example.com", "Hi", "", 2, now.Add(-time.Minute), "", now, now))

	due, err := NewBounceQueueRepo(db).Due(context.Background(), now, 50)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 2, due[0].Retries)
}
