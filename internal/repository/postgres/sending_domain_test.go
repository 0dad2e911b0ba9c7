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

	"github.com/ignite/mailguard/internal/service/guard"
)

var domainCols = []string{"id", "name", "dkim_selector", "verified", "last_check_result", "last_checked_at"}

func TestDomainRepo_FindDomainLowercases(t *testing.T) {
	db, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE name = $1")).
		WithArgs("acme.io").
		WillReturnRows(sqlmock.NewRows(domainCols).AddRow("d1", "acme.io", "s1", true, "{}", nil))

	d, err := NewDomainRepo(db).FindDomain(context.Background(), "ACME.io")
	require.NoError(t, err)
	assert.True(t, d.Verified)
	assert.Nil(t, d.LastCheckedAt)
}

func TestDomainRepo_DefaultDomainNone(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("is_default DESC")).
		WithArgs("").
		WillReturnError(sql.ErrNoRows)

	_, err := NewDomainRepo(db).DefaultDomain(context.Background())
	assert.ErrorIs(t, err, guard.ErrDomainNotFound)
}

func TestDomainRepo_DefaultDomainPreferred(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY (name = $1) DESC")).
		WithArgs("acme.io").
		WillReturnRows(sqlmock.NewRows(domainCols).AddRow("d1", "acme.io", "", false, "", nil))

	d, err := NewDomainRepo(db).PreferDefault("Acme.IO").DefaultDomain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acme.io", d.Name)
}

func TestDomainRepo_SaveCheck(t *testing.T) {
	db, mock := newMock(t)
	at := time.Now()

	mock.ExpectExec(regexp.QuoteMeta("UPDATE sending_domains")).
		WithArgs("acme.io", false, `{"spf":{"status":"fail"}}`, at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewDomainRepo(db).SaveCheck(context.Background(), "acme.io", false, `{"spf":{"status":"fail"}}`, at)
	assert.ErrorIs(t, err, guard.ErrDomainNotFound)
}

func TestDomainRepo_Names(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT name FROM sending_domains")).
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("a.io").AddRow("b.io"))

	names, err := NewDomainRepo(db).Names(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.io", "b.io"}, names)
}
