// Package app wires the stores and services shared by the server and worker
// binaries from a loaded configuration.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ignite/mailguard/internal/config"
	"github.com/ignite/mailguard/internal/content"
	"github.com/ignite/mailguard/internal/pkg/distlock"
	"github.com/ignite/mailguard/internal/pkg/logger"
	"github.com/ignite/mailguard/internal/ratelimit"
	"github.com/ignite/mailguard/internal/repository/postgres"
	"github.com/ignite/mailguard/internal/service/guard"
	"github.com/ignite/mailguard/internal/service/sending"
	"github.com/ignite/mailguard/internal/ses"
	"github.com/ignite/mailguard/internal/smtpprobe"
	"github.com/ignite/mailguard/internal/storage"
	"github.com/ignite/mailguard/internal/verify"
)

// App holds the wired components. Redis, Gate and Archive are nil when not
// configured.
type App struct {
	Config   *config.Config
	DB       *sql.DB
	Redis    *redis.Client
	Leads    *postgres.LeadRepo
	Domains  *postgres.DomainRepo
	Guard    *guard.Service
	Verifier *verify.Verifier
	Limiter  *ratelimit.Limiter
	Renderer *content.Renderer
	Gate     *sending.Gate
	Archive  *storage.SnapshotArchive
}

// ConfigureLogging applies the log section to the default logger.
func ConfigureLogging(cfg config.LogConfig) {
	logger.SetLevel(logger.ParseLevel(cfg.Level))
	logger.SetRedactPII(cfg.RedactPIIEnabled())
}

// New connects to Postgres (and Redis when configured) and builds every
// service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := openDB(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, DB: db}

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		a.Redis = redis.NewClient(opts)
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, continuing without it", "error", err)
			a.Redis.Close()
			a.Redis = nil
		}
	}

	a.Leads = postgres.NewLeadRepo(db)
	a.Domains = postgres.NewDomainRepo(db).PreferDefault(cfg.Guard.DefaultDomain)
	events := postgres.NewEventRepo(db)

	a.Guard = guard.NewService(guard.Stores{
		Leads:     a.Leads,
		Events:    events,
		Campaigns: postgres.NewCampaignRepo(db),
		Bounces:   postgres.NewBounceQueueRepo(db),
		Domains:   a.Domains,
		Snapshots: postgres.NewSnapshotRepo(db),
	}, guard.WithThresholds(cfg.Guard.Thresholds))

	a.Verifier = newVerifier(cfg, a.Redis)
	a.Limiter = ratelimit.New(cfg.RateLimit.MaxPerMinute)
	a.Renderer = content.NewRenderer(nil)

	if cfg.SES.Enabled {
		sender, err := ses.New(ctx, ses.Config{
			Region:           cfg.SES.Region,
			AccessKey:        cfg.SES.AccessKey,
			SecretKey:        cfg.SES.SecretKey,
			ConfigurationSet: cfg.SES.ConfigurationSet,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("ses sender: %w", err)
		}
		a.Gate = sending.NewGate(a.Guard, a.Leads, events, a.Limiter, a.Renderer, sender)
	}

	if cfg.Archive.Enabled {
		arch, err := storage.NewSnapshotArchive(ctx, storage.ArchiveConfig{
			Bucket:   cfg.Archive.Bucket,
			Prefix:   cfg.Archive.Prefix,
			Region:   cfg.Archive.Region,
			Compress: cfg.Archive.Compress,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("snapshot archive: %w", err)
		}
		a.Archive = arch
	}
	return a, nil
}

func openDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func newVerifier(cfg *config.Config, rdb *redis.Client) *verify.Verifier {
	var resolver verify.Resolver = verify.NewNetResolver(net.DefaultResolver)
	if rdb != nil {
		resolver = verify.NewCachedResolver(resolver, rdb, cfg.Redis.MXCacheTTL(), cfg.Redis.NegativeTTL())
	}
	prober := smtpprobe.New(
		smtpprobe.WithHostname(cfg.Probe.HeloHostname),
		smtpprobe.WithPort(cfg.Probe.Port),
		smtpprobe.WithTimeout(cfg.Probe.Timeout()),
	)
	return verify.New(resolver, prober,
		verify.WithBatchDelay(cfg.Verification.BatchDelay()),
		verify.WithStrictSyntax(cfg.Verification.StrictSyntax),
		verify.WithDisposableDomains(cfg.Verification.ExtraDisposable...),
		verify.WithCatchAllDomains(cfg.Verification.ExtraCatchAll...),
		verify.WithBlockingDomains(cfg.Verification.ExtraBlocking...),
	)
}

// JobLock returns the lock guarding a scheduled job: Redis when available,
// otherwise a Postgres advisory lock.
func (a *App) JobLock(job string) distlock.Lock {
	return distlock.New(a.Redis, a.DB, "job:"+job, a.Config.Schedules.LockTTL())
}

// Close releases connections.
func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
