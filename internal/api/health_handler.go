package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/mailguard/internal/pkg/httputil"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status  string                    `json:"status"` // healthy, degraded, unhealthy
	Version string                    `json:"version"`
	Uptime  string                    `json:"uptime"`
	Checks  map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck is the health of one dependency.
type ComponentCheck struct {
	Status  string `json:"status"` // up, down, degraded, not_configured
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthChecker reports on Postgres (critical), Redis (optional) and the
// sender's backoff state.
type HealthChecker struct {
	db        Pinger
	redis     *redis.Client
	limiter   LimiterState
	now       func() time.Time
	startTime time.Time
}

// NewHealthChecker creates a checker. redisClient may be nil.
func NewHealthChecker(db Pinger, redisClient *redis.Client) *HealthChecker {
	return &HealthChecker{db: db, redis: redisClient, now: time.Now, startTime: time.Now()}
}

// WithLimiter adds the "sender" check, degraded while the limiter backs off
// after provider errors.
func (hc *HealthChecker) WithLimiter(l LimiterState) *HealthChecker {
	hc.limiter = l
	return hc
}

const healthVersion = "1.0.0"

// HandleHealth always answers 200; the body carries the verdict.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	httputil.OK(w, HealthStatus{
		Status:  overallStatus(checks),
		Version: healthVersion,
		Uptime:  time.Since(hc.startTime).Truncate(time.Second).String(),
		Checks:  checks,
	})
}

// HandleLiveness answers 200 while the process runs.
//
//	GET /health/live
func (hc *HealthChecker) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "alive"})
}

// HandleReadiness answers 503 when a critical dependency is down.
//
//	GET /health/ready
func (hc *HealthChecker) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	checks := hc.runAllChecks(r.Context())
	overall := overallStatus(checks)
	status := http.StatusOK
	if overall == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	httputil.JSON(w, status, map[string]interface{}{
		"ready":  overall != "unhealthy",
		"status": overall,
		"checks": checks,
	})
}

type namedCheck struct {
	name string
	run  func(context.Context) ComponentCheck
}

func (hc *HealthChecker) components() []namedCheck {
	list := []namedCheck{
		{"database", hc.checkDatabase},
		{"redis", hc.checkRedis},
	}
	if hc.limiter != nil {
		list = append(list, namedCheck{"sender", hc.checkSender})
	}
	return list
}

// runAllChecks pings every component concurrently.
func (hc *HealthChecker) runAllChecks(ctx context.Context) map[string]ComponentCheck {
	list := hc.components()
	results := make([]ComponentCheck, len(list))
	var wg sync.WaitGroup
	for i, c := range list {
		wg.Add(1)
		go func(i int, c namedCheck) {
			defer wg.Done()
			results[i] = c.run(ctx)
		}(i, c)
	}
	wg.Wait()

	checks := make(map[string]ComponentCheck, len(list))
	for i, c := range list {
		checks[c.name] = results[i]
	}
	return checks
}

func (hc *HealthChecker) checkDatabase(ctx context.Context) ComponentCheck {
	if hc.db == nil {
		return ComponentCheck{Status: "down", Message: "not configured"}
	}
	return timedPing(ctx, 3*time.Second, time.Second, hc.db.PingContext)
}

func (hc *HealthChecker) checkRedis(ctx context.Context) ComponentCheck {
	if hc.redis == nil {
		return ComponentCheck{Status: "not_configured"}
	}
	return timedPing(ctx, 2*time.Second, 500*time.Millisecond, func(ctx context.Context) error {
		return hc.redis.Ping(ctx).Err()
	})
}

func (hc *HealthChecker) checkSender(context.Context) ComponentCheck {
	st := hc.limiter.State()
	if until := st.BackoffUntil; until.After(hc.now()) {
		return ComponentCheck{
			Status:  "degraded",
			Message: fmt.Sprintf("backing off until %s after %d provider errors", until.UTC().Format(time.RFC3339), st.ConsecutiveErrors),
		}
	}
	return ComponentCheck{Status: "up", Message: fmt.Sprintf("%d/%d sends this window", st.Count, st.MaxPerMinute)}
}

func timedPing(ctx context.Context, timeout, slow time.Duration, ping func(context.Context) error) ComponentCheck {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := ping(pingCtx)
	latency := time.Since(start)

	if err != nil {
		return ComponentCheck{Status: "down", Latency: latency.String(), Message: fmt.Sprintf("ping failed: %v", err)}
	}
	if latency > slow {
		return ComponentCheck{Status: "degraded", Latency: latency.String(), Message: fmt.Sprintf("slow response (%s)", latency)}
	}
	return ComponentCheck{Status: "up", Latency: latency.String(), Message: "connected"}
}

// overallStatus: database down is unhealthy; anything else only degrades.
func overallStatus(checks map[string]ComponentCheck) string {
	if checks["database"].Status == "down" {
		return "unhealthy"
	}
	for _, c := range checks {
		if c.Status == "down" || c.Status == "degraded" {
			return "degraded"
		}
	}
	return "healthy"
}
