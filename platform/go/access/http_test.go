package access

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	platformauth "github.com/zenGate-Global/palmyra-tenancy/platform/go/auth"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/problems"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/requesttrace"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/tenant"
)

func newHTTPRequest(p *platformauth.UserCredentials, t *tenant.Tenant) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/tenant/things", nil)
	ctx := req.Context()
	if p != nil {
		ctx = platformauth.WithUser(ctx, p)
	}
	if t != nil {
		ctx = tenant.WithTenant(ctx, *t)
	}
	return req.WithContext(ctx)
}

func decodeProblem(t *testing.T, resp *httptest.ResponseRecorder) problems.Details {
	t.Helper()
	require.Equal(t, problems.ContentType, resp.Header().Get("Content-Type"))
	var body problems.Details
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	return body
}

func TestMiddlewareAttachesMembership(t *testing.T) {
	caps := newFakeCaps()
	m := Membership{ID: uuid.New(), UserID: "u1", TenantID: acme.ID, Status: "active"}
	caps.memberships = []Membership{m}

	var attached Membership
	var found, bypassed bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attached, found = MembershipFromContext(r.Context())
		bypassed = BypassedFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	tn := acme
	resp := httptest.NewRecorder()
	RequireTenantMember(caps, zaptest.NewLogger(t))(next).ServeHTTP(resp, newHTTPRequest(principal("u1", "user"), &tn))

	require.Equal(t, http.StatusOK, resp.Code)
	require.True(t, found)
	require.False(t, bypassed)
	require.Equal(t, m.ID, attached.ID)
	require.Equal(t, 1, caps.memberCalls, "downstream handlers reuse the attached membership")
}

func TestMiddlewareMarksBypass(t *testing.T) {
	caps := newFakeCaps()
	caps.grant("root", RoleSuperadmin, nil)

	var found, bypassed bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, found = MembershipFromContext(r.Context())
		bypassed = BypassedFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	tn := acme
	resp := httptest.NewRecorder()
	RequireTenantMember(caps, zaptest.NewLogger(t))(next).ServeHTTP(resp, newHTTPRequest(principal("root", "superadmin"), &tn))

	require.Equal(t, http.StatusOK, resp.Code)
	require.False(t, found)
	require.True(t, bypassed)
	require.Zero(t, caps.memberCalls)
}

func TestMiddlewareRejections(t *testing.T) {
	tn := acme
	testCases := []struct {
		name       string
		chain      Chain
		principal  *platformauth.UserCredentials
		tenant     *tenant.Tenant
		wantStatus int
		wantType   string
	}{
		{"unauthenticated", MembershipGuard(newFakeCaps()), nil, &tn, http.StatusUnauthorized, problems.TypeUnauthorized},
		{"tenant not initialized", MembershipGuard(newFakeCaps()), principal("u1", "user"), nil, http.StatusInternalServerError, problems.TypeTenantNotReady},
		{"no membership", MembershipGuard(newFakeCaps()), principal("u1", "user"), &tn, http.StatusForbidden, problems.TypeForbidden},
		{"wrong type", SuperadminGuard(), principal("u1", "user"), nil, http.StatusForbidden, problems.TypeForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

			resp := httptest.NewRecorder()
			Middleware(tc.chain, zaptest.NewLogger(t))(next).ServeHTTP(resp, newHTTPRequest(tc.principal, tc.tenant))

			require.False(t, called)
			require.Equal(t, tc.wantStatus, resp.Code)
			body := decodeProblem(t, resp)
			require.Equal(t, tc.wantStatus, body.Status)
			require.Equal(t, tc.wantType, body.Type)
			require.NotEmpty(t, body.Detail)
		})
	}
}

func TestMiddlewareAlertsOnTenantNotInitialized(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	resp := httptest.NewRecorder()
	RequireTenantMember(newFakeCaps(), logger)(next).ServeHTTP(resp, newHTTPRequest(principal("u1", "user"), nil))
	require.Equal(t, http.StatusInternalServerError, resp.Code)

	entries := logs.FilterField(zap.Bool("alert", true)).All()
	require.Len(t, entries, 1)
	require.Equal(t, zapcore.ErrorLevel, entries[0].Level)

	// Ordinary rejections are not alerts.
	tn := acme
	resp = httptest.NewRecorder()
	RequireTenantMember(newFakeCaps(), logger)(next).ServeHTTP(resp, newHTTPRequest(principal("u1", "user"), &tn))
	require.Equal(t, http.StatusForbidden, resp.Code)
	require.Len(t, logs.FilterField(zap.Bool("alert", true)).All(), 1)
}

func TestMiddlewareInternalErrorHidesDetail(t *testing.T) {
	caps := newFakeCaps()
	caps.memberErr = assertErr("pq: password authentication failed")

	tn := acme
	resp := httptest.NewRecorder()
	RequireTenantMember(caps, zaptest.NewLogger(t))(http.NotFoundHandler()).ServeHTTP(resp, newHTTPRequest(principal("u1", "user"), &tn))

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	body := decodeProblem(t, resp)
	require.Equal(t, problems.TypeInternal, body.Type)
	require.NotContains(t, resp.Body.String(), "password")
}

func TestMiddlewarePassesPreflight(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/admin/tenants", nil)

	RequireSuperadmin(zaptest.NewLogger(t))(next).ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, called)
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestRequireTenantAllowsAnonymousWithTenant(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	handler := RequireTenant(zaptest.NewLogger(t))(next)

	tn := acme
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, newHTTPRequest(nil, &tn))
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, newHTTPRequest(nil, nil))
	require.Equal(t, http.StatusInternalServerError, resp.Code)
	require.Equal(t, problems.TypeTenantNotReady, decodeProblem(t, resp).Type)
}

func TestMiddlewareStampsAudit(t *testing.T) {
	caps := newFakeCaps()
	m := Membership{ID: uuid.New(), UserID: "u1", TenantID: acme.ID, Status: "active"}
	caps.memberships = []Membership{m}

	var audit requesttrace.AuditInfo
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		audit = requesttrace.FromContextOrAnonymous(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	tn := acme
	req := newHTTPRequest(principal("u1", "user"), &tn)
	id := "u1"
	req = req.WithContext(requesttrace.IntoContext(req.Context(), requesttrace.AuditInfo{ActorKind: requesttrace.ActorKindUser, UserID: &id}))

	resp := httptest.NewRecorder()
	RequireTenantMember(caps, zaptest.NewLogger(t))(next).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, audit.MembershipID)
	require.Equal(t, m.ID.String(), *audit.MembershipID)
	require.False(t, audit.Bypassed)
}
