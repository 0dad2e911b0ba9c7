package app

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/mailguard/internal/config"
	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/distlock"
)

func TestJobLockBackend(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	a := &App{Config: config.Default(), DB: db}
	_, isPG := a.JobLock("snapshot").(*distlock.AdvisoryLock)
	assert.True(t, isPG)

	mr := miniredis.RunT(t)
	a.Redis = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer a.Redis.Close()
	_, isRedis := a.JobLock("snapshot").(*distlock.RedisLock)
	assert.True(t, isRedis)
}

func TestNewVerifierRejectsConfiguredDisposable(t *testing.T) {
	cfg := config.Default()
	cfg.Verification.ExtraDisposable = []string{"burner.example"}

	v := newVerifier(cfg, nil)
	rec := v.Verify(context.Background(), "someone@burner.example")
	assert.Equal(t, domain.VerifyDisposable, rec.Result)
}

func TestConfigureLogging(t *testing.T) {
	off := false
	assert.NotPanics(t, func() {
		ConfigureLogging(config.LogConfig{Level: "debug", RedactPII: &off})
		ConfigureLogging(config.LogConfig{Level: "info"})
	})
}
