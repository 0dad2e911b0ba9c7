package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ignite/mailguard/internal/domain"
	"github.com/ignite/mailguard/internal/pkg/logger"
)

// Resolver looks up mail exchangers. Records come back sorted by ascending
// priority.
type Resolver interface {
	LookupMX(ctx context.Context, name string) ([]domain.MXRecord, error)
}

// NetResolver adapts a *net.Resolver.
type NetResolver struct {
	r *net.Resolver
}

// NewNetResolver wraps r, or net.DefaultResolver when r is nil.
func NewNetResolver(r *net.Resolver) *NetResolver {
	if r == nil {
		r = net.DefaultResolver
	}
	return &NetResolver{r: r}
}

func (n *NetResolver) LookupMX(ctx context.Context, name string) ([]domain.MXRecord, error) {
	mxs, err := n.r.LookupMX(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]domain.MXRecord, 0, len(mxs))
	for _, mx := range mxs {
		host := strings.TrimSuffix(mx.Host, ".")
		if host == "" {
			continue
		}
		out = append(out, domain.MXRecord{Exchange: host, Priority: mx.Pref})
	}
	SortMX(out)
	return out, nil
}

// SortMX orders records by priority, lowest first, keeping ties stable.
func SortMX(records []domain.MXRecord) {
	sort.SliceStable(records, func(i, j int) bool { return records[i].Priority < records[j].Priority })
}

// CachedResolver keeps MX answers in Redis. Empty answers and lookup
// failures are cached for NegativeTTL so a dead domain is not re-queried
// for every lead in a batch.
type CachedResolver struct {
	next        Resolver
	rdb         redis.Cmdable
	prefix      string
	ttl         time.Duration
	negativeTTL time.Duration
}

// NewCachedResolver decorates next with a Redis cache.
func NewCachedResolver(next Resolver, rdb redis.Cmdable, ttl, negativeTTL time.Duration) *CachedResolver {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if negativeTTL <= 0 {
		negativeTTL = 5 * time.Minute
	}
	return &CachedResolver{next: next, rdb: rdb, prefix: "mailguard:mx:", ttl: ttl, negativeTTL: negativeTTL}
}

// errNoMX is returned for a cached negative answer.
var errNoMX = errors.New("no mx records (cached)")

func (c *CachedResolver) LookupMX(ctx context.Context, name string) ([]domain.MXRecord, error) {
	key := c.prefix + strings.ToLower(name)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var records []domain.MXRecord
		if jerr := json.Unmarshal(raw, &records); jerr == nil {
			if len(records) == 0 {
				return nil, errNoMX
			}
			return records, nil
		}
		logger.Warn("discarding unreadable mx cache entry", "domain", name)
	case !errors.Is(err, redis.Nil):
		logger.Warn("mx cache read failed", "domain", name, "error", err.Error())
	}

	records, lookupErr := c.next.LookupMX(ctx, name)
	if ctx.Err() != nil {
		return records, lookupErr
	}

	ttl := c.ttl
	if lookupErr != nil || len(records) == 0 {
		records = []domain.MXRecord{}
		ttl = c.negativeTTL
	}
	if payload, err := json.Marshal(records); err == nil {
		if err := c.rdb.Set(ctx, key, payload, ttl).Err(); err != nil {
			logger.Warn("mx cache write failed", "domain", name, "error", err.Error())
		}
	}

	if lookupErr != nil {
		return nil, fmt.Errorf("lookup mx %s: %w", name, lookupErr)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return records, nil
}
