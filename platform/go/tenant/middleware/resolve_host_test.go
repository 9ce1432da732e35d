package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/palmyra-tenancy/platform/go/tenant"
)

type stubResolver struct {
	calls   atomic.Int32
	domains map[string]tenant.Tenant
	err     error
}

func (s *stubResolver) ResolveTenantByDomain(_ context.Context, domain string) (tenant.Tenant, error) {
	s.calls.Add(1)
	if s.err != nil {
		return tenant.Tenant{}, s.err
	}
	t, ok := s.domains[domain]
	if !ok {
		return tenant.Tenant{}, fmt.Errorf("domain %q: %w", domain, tenant.ErrNoTenant)
	}
	return t, nil
}

// downstream records the tenant seen by the next handler.
type downstream struct {
	tenant tenant.Tenant
	found  bool
	called bool
}

func (p *downstream) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.called = true
		p.tenant, p.found = tenant.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func serve(t *testing.T, h http.Handler, host string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/anything", nil)
	req.Host = host
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func TestResolveFromHostAttachesTenant(t *testing.T) {
	acme := tenant.Tenant{ID: uuid.New(), Slug: "acme"}
	resolver := &stubResolver{domains: map[string]tenant.Tenant{"acme.example.com": acme}}

	p := &downstream{}
	h := ResolveFromHost(resolver, Config{Logger: zaptest.NewLogger(t)})(p.handler())

	resp := serve(t, h, "ACME.example.com:443")
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.True(t, p.found)
	require.Equal(t, acme.ID, p.tenant.ID)
	require.Equal(t, "acme.example.com", p.tenant.Domain)
}

func TestResolveFromHostUnmappedDomainIsCentral(t *testing.T) {
	resolver := &stubResolver{domains: map[string]tenant.Tenant{}}

	p := &downstream{}
	h := ResolveFromHost(resolver, Config{})(p.handler())

	resp := serve(t, h, "unknown.example.com")
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.True(t, p.called)
	require.False(t, p.found)
}

func TestResolveFromHostCentralDomainSkipsLookup(t *testing.T) {
	resolver := &stubResolver{err: errors.New("must not be called")}

	p := &downstream{}
	h := ResolveFromHost(resolver, Config{CentralDomains: ParseDomains("admin.example.com, ,localhost")})(p.handler())

	resp := serve(t, h, "admin.example.com")
	require.Equal(t, http.StatusNoContent, resp.Code)
	require.False(t, p.found)
	require.Zero(t, resolver.calls.Load())
}

func TestResolveFromHostLookupFailureIsInternalError(t *testing.T) {
	resolver := &stubResolver{err: errors.New("connection refused")}

	p := &downstream{}
	h := ResolveFromHost(resolver, Config{Logger: zaptest.NewLogger(t)})(p.handler())

	resp := serve(t, h, "acme.example.com")
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	require.False(t, p.called)
	require.Equal(t, "application/problem+json", resp.Header().Get("Content-Type"))
}

func TestResolveFromHostCachesPositiveAndNegativeResults(t *testing.T) {
	acme := tenant.Tenant{ID: uuid.New(), Slug: "acme", Domain: "acme.example.com"}
	resolver := &stubResolver{domains: map[string]tenant.Tenant{"acme.example.com": acme}}

	p := &downstream{}
	h := ResolveFromHost(resolver, Config{CacheTTL: time.Minute})(p.handler())

	for i := 0; i < 3; i++ {
		serve(t, h, "acme.example.com")
		require.True(t, p.found)
		serve(t, h, "nobody.example.com")
		require.False(t, p.found)
	}

	require.Equal(t, int32(2), resolver.calls.Load())
}

func TestTenantCacheDropsExpiredEntries(t *testing.T) {
	now := time.Now()
	cache := newTenantCache(time.Millisecond, 100_000)
	cache.now = func() time.Time { return now }

	for i := 0; i < 50_000; i++ {
		cache.put(fmt.Sprintf("host-%d.example.com", i), tenant.Tenant{}, false)
	}
	require.Equal(t, 50_000, cache.size())

	now = now.Add(10 * time.Millisecond)
	_, _, hit := cache.get("host-1.example.com")
	require.False(t, hit)
	require.Equal(t, 49_999, cache.size())

	cache.put("fresh.example.com", tenant.Tenant{}, false)
	cache.max = 1
	cache.put("another.example.com", tenant.Tenant{}, false)
	require.Equal(t, 1, cache.size())
	_, _, hit = cache.get("fresh.example.com")
	require.True(t, hit)
}

func TestTenantCacheIsBounded(t *testing.T) {
	now := time.Now()
	cache := newTenantCache(time.Minute, 3)
	cache.now = func() time.Time { return now }

	for i := 0; i < 10; i++ {
		cache.put(fmt.Sprintf("miss-%d.example.com", i), tenant.Tenant{}, false)
	}
	require.Equal(t, 3, cache.size())

	acme := tenant.Tenant{ID: uuid.New(), Slug: "acme"}
	cache.put("acme.example.com", acme, true)
	require.Equal(t, 3, cache.size())

	got, found, hit := cache.get("acme.example.com")
	require.True(t, hit)
	require.True(t, found)
	require.Equal(t, acme, got)
}

func TestResolveFromHostCacheStaysBoundedUnderUnknownHosts(t *testing.T) {
	resolver := &stubResolver{domains: map[string]tenant.Tenant{}}
	h := ResolveFromHost(resolver, Config{CacheTTL: time.Hour, CacheMaxEntries: 8})((&downstream{}).handler())

	for i := 0; i < 100; i++ {
		resp := serve(t, h, fmt.Sprintf("random-%d.example.com", i))
		require.Equal(t, http.StatusNoContent, resp.Code)
	}
	require.Equal(t, int32(100), resolver.calls.Load())
}

func TestParseDomains(t *testing.T) {
	require.Equal(t, []string{"admin.example.com", "localhost"}, ParseDomains(" Admin.example.com ,, localhost:3000"))
	require.Nil(t, ParseDomains(""))
}
