package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	platformlogging "github.com/zenGate-Global/palmyra-tenancy/platform/go/logging"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/problems"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/tenant"
)

// DomainResolver defines the lookup capability required to map a request domain to a tenant.
// Implementations return an error wrapping tenant.ErrNoTenant when the domain is unmapped.
// Implemented by the tenant registry service.
type DomainResolver interface {
	ResolveTenantByDomain(ctx context.Context, domain string) (tenant.Tenant, error)
}

// Config controls middleware behavior.
type Config struct {
	// CentralDomains never resolve to a tenant and skip the lookup entirely.
	CentralDomains []string
	// Optional small in-memory TTL cache to avoid DB hits; zero disables caching.
	CacheTTL time.Duration
	// CacheMaxEntries bounds the cache; zero means DefaultCacheMaxEntries.
	CacheMaxEntries int
	Logger          *zap.Logger
}

// DefaultCacheMaxEntries is the cache bound used when Config.CacheMaxEntries is zero.
const DefaultCacheMaxEntries = 4096

// ResolveFromHost resolves the tenant from the request Host and attaches it to the context.
// Unmapped and central domains continue without a tenant; lookup failures are rejected with 500.
func ResolveFromHost(resolver DomainResolver, cfg Config) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("tenant middleware: resolver is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	central := make(map[string]struct{}, len(cfg.CentralDomains))
	for _, d := range cfg.CentralDomains {
		if d = tenant.NormalizeHost(d); d != "" {
			central[d] = struct{}{}
		}
	}

	var cache *tenantCache
	if cfg.CacheTTL > 0 {
		cache = newTenantCache(cfg.CacheTTL, cfg.CacheMaxEntries)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			domain := tenant.NormalizeHost(r.Host)
			if domain == "" {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := central[domain]; ok {
				next.ServeHTTP(w, r)
				return
			}

			if t, found, hit := cache.get(domain); hit {
				serveWith(next, w, r, t, found)
				return
			}

			t, err := resolver.ResolveTenantByDomain(r.Context(), domain)
			switch {
			case errors.Is(err, tenant.ErrNoTenant):
				cache.put(domain, tenant.Tenant{}, false)
				next.ServeHTTP(w, r)
			case err != nil:
				platformlogging.FromRequest(r, logger).Error("resolve tenant by domain",
					zap.String("domain", domain),
					zap.Error(err),
				)
				problems.Write(w, problems.New("Internal server error", "tenant lookup failed", problems.TypeInternal, http.StatusInternalServerError, nil))
			default:
				if t.Domain == "" {
					t.Domain = domain
				}
				cache.put(domain, t, true)
				serveWith(next, w, r, t, true)
			}
		})
	}
}

func serveWith(next http.Handler, w http.ResponseWriter, r *http.Request, t tenant.Tenant, found bool) {
	if !found {
		next.ServeHTTP(w, r)
		return
	}

	ctx := tenant.WithTenant(r.Context(), t)
	ctx = platformlogging.With(ctx, zap.String("tenant_id", t.ID.String()))
	next.ServeHTTP(w, r.WithContext(ctx))
}

// ParseDomains splits a comma separated domain list, dropping blanks.
func ParseDomains(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if d := tenant.NormalizeHost(part); d != "" {
			out = append(out, d)
		}
	}
	return out
}

// tenantCache is keyed on the client supplied host, so it never holds more than max
// entries. Expired entries are dropped on read and swept when the cache fills up; misses are
// not cached while the cache is full of live entries.
type tenantCache struct {
	ttl   time.Duration
	max   int
	now   func() time.Time
	mu    sync.Mutex
	items map[string]cacheItem
}

type cacheItem struct {
	tenant    tenant.Tenant
	found     bool
	expiresAt time.Time
}

func newTenantCache(ttl time.Duration, max int) *tenantCache {
	if max <= 0 {
		max = DefaultCacheMaxEntries
	}
	return &tenantCache{ttl: ttl, max: max, now: time.Now, items: make(map[string]cacheItem)}
}

// get reports the cached tenant, whether the domain mapped to one, and whether the entry was live.
func (c *tenantCache) get(domain string) (tenant.Tenant, bool, bool) {
	if c == nil {
		return tenant.Tenant{}, false, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[domain]
	if !ok {
		return tenant.Tenant{}, false, false
	}
	if c.now().After(item.expiresAt) {
		delete(c.items, domain)
		return tenant.Tenant{}, false, false
	}
	return item.tenant, item.found, true
}

func (c *tenantCache) put(domain string, t tenant.Tenant, found bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.items[domain]; !exists && len(c.items) >= c.max {
		c.sweep(now)
		if len(c.items) >= c.max {
			if !found {
				return
			}
			c.evictOne()
		}
	}
	c.items[domain] = cacheItem{tenant: t, found: found, expiresAt: now.Add(c.ttl)}
}

func (c *tenantCache) sweep(now time.Time) {
	for domain, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, domain)
		}
	}
}

// evictOne drops a cached miss if there is one, otherwise any entry.
func (c *tenantCache) evictOne() {
	victim := ""
	for domain, item := range c.items {
		victim = domain
		if !item.found {
			break
		}
	}
	delete(c.items, victim)
}

func (c *tenantCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
