package access

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	platformauth "github.com/zenGate-Global/palmyra-tenancy/platform/go/auth"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/permission"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/tenant"
)

type roleKey struct {
	principal string
	role      string
	scope     string
}

// fakeCaps is an in-memory Capabilities with call recording.
type fakeCaps struct {
	roles       map[roleKey]bool
	memberships []Membership
	roleErr     error
	memberErr   error

	roleCalls   int
	memberCalls int
}

func newFakeCaps() *fakeCaps {
	return &fakeCaps{roles: map[roleKey]bool{}}
}

func (f *fakeCaps) grant(principal, role string, scope *permission.ScopeID) {
	f.roles[roleKey{principal, role, permission.String(scope)}] = true
}

func (f *fakeCaps) HasRole(_ context.Context, principalID, role string, scope *permission.ScopeID) (bool, error) {
	f.roleCalls++
	if f.roleErr != nil {
		return false, f.roleErr
	}
	return f.roles[roleKey{principalID, role, permission.String(scope)}], nil
}

func (f *fakeCaps) ActiveMembership(_ context.Context, principalID string, tenantID uuid.UUID) (Membership, error) {
	f.memberCalls++
	if f.memberErr != nil {
		return Membership{}, f.memberErr
	}
	for _, m := range f.memberships {
		if m.UserID == principalID && m.TenantID == tenantID && m.IsActive() {
			return m, nil
		}
	}
	return Membership{}, fmt.Errorf("user %s: %w", principalID, ErrNoMembership)
}

var acme = tenant.Tenant{ID: uuid.MustParse("6f1c2a4e-0b7d-4c1e-9a55-3f0e8a1b2c3d"), Slug: "acme", Domain: "acme.example.com"}

func principal(id, typ string) *platformauth.UserCredentials {
	return &platformauth.UserCredentials{ID: id, Type: typ}
}

func request(p *platformauth.UserCredentials, t *tenant.Tenant) *Request {
	return &Request{Ctx: context.Background(), Principal: p, Tenant: t}
}

func TestMembershipGuardAuthorizationProperty(t *testing.T) {
	types := []string{platformauth.PrincipalTypeUser, platformauth.PrincipalTypeSuperadmin}
	roleStates := []bool{false, true}
	memberStates := []string{"", "active", "suspended", "invited"}

	for _, typ := range types {
		for _, hasRole := range roleStates {
			for _, status := range memberStates {
				name := fmt.Sprintf("type=%s/role=%t/membership=%q", typ, hasRole, status)
				t.Run(name, func(t *testing.T) {
					caps := newFakeCaps()
					if hasRole {
						caps.grant("u1", RoleSuperadmin, nil)
					}
					if status != "" {
						caps.memberships = append(caps.memberships, Membership{
							ID: uuid.New(), UserID: "u1", TenantID: acme.ID, Status: status, CreatedAt: time.Now(),
						})
					}

					tn := acme
					req := request(principal("u1", typ), &tn)
					err := MembershipGuard(caps).Evaluate(req)

					bypass := typ == platformauth.PrincipalTypeSuperadmin && hasRole
					want := bypass || status == "active"
					if want {
						require.NoError(t, err)
						require.Equal(t, bypass, req.Bypassed)
						if !bypass {
							require.NotNil(t, req.Membership)
							require.Equal(t, acme.ID, req.Membership.TenantID)
						}
						return
					}
					require.ErrorIs(t, err, ErrForbiddenNoMembership)
					require.Nil(t, req.Membership)
				})
			}
		}
	}
}

func TestEveryGuardRejectsUnauthenticated(t *testing.T) {
	tn := acme
	chains := map[string]Chain{
		"membership":  MembershipGuard(newFakeCaps()),
		"superadmin":  SuperadminGuard(),
		"member-only": {TenantMember(newFakeCaps())},
		"type-only":   {SuperadminType},
	}
	tenants := map[string]*tenant.Tenant{"resolved": &tn, "central": nil}
	principals := map[string]*platformauth.UserCredentials{"nil": nil, "empty id": {Type: platformauth.PrincipalTypeSuperadmin}}

	for chainName, chain := range chains {
		for tenantName, tp := range tenants {
			for pName, p := range principals {
				t.Run(chainName+"/"+tenantName+"/"+pName, func(t *testing.T) {
					err := chain.Evaluate(request(p, tp))
					require.ErrorIs(t, err, ErrUnauthenticated)
					require.Equal(t, 401, StatusFor(err))
				})
			}
		}
	}
}

func TestScenarioNoMembershipRow(t *testing.T) {
	tn := acme
	err := MembershipGuard(newFakeCaps()).Evaluate(request(principal("u1", "user"), &tn))
	require.ErrorIs(t, err, ErrForbiddenNoMembership)
	require.Equal(t, 403, StatusFor(err))
}

func TestScenarioActiveMembershipAttached(t *testing.T) {
	caps := newFakeCaps()
	m := Membership{ID: uuid.New(), UserID: "u1", TenantID: acme.ID, Status: "active"}
	caps.memberships = []Membership{m}

	tn := acme
	req := request(principal("u1", "user"), &tn)
	require.NoError(t, MembershipGuard(caps).Evaluate(req))
	require.Equal(t, &m, req.Membership)
	require.Zero(t, caps.roleCalls, "ordinary users never trigger the role lookup")
}

func TestScenarioCentralDomainRequiresTenant(t *testing.T) {
	caps := newFakeCaps()
	caps.grant("root", RoleSuperadmin, nil)

	for _, p := range []*platformauth.UserCredentials{principal("u1", "user"), principal("root", "superadmin")} {
		err := MembershipGuard(caps).Evaluate(request(p, nil))
		require.ErrorIs(t, err, ErrTenantNotInitialized)
		require.Equal(t, 500, StatusFor(err))
	}
	require.Zero(t, caps.memberCalls)
}

func TestScenarioSuperadminTypeWithoutRoleFallsThrough(t *testing.T) {
	caps := newFakeCaps()
	tn := acme

	err := MembershipGuard(caps).Evaluate(request(principal("root", "superadmin"), &tn))
	require.ErrorIs(t, err, ErrForbiddenNoMembership)
	require.Equal(t, 1, caps.roleCalls)
	require.Equal(t, 1, caps.memberCalls)

	caps.memberships = []Membership{{ID: uuid.New(), UserID: "root", TenantID: acme.ID, Status: "active"}}
	req := request(principal("root", "superadmin"), &tn)
	require.NoError(t, MembershipGuard(caps).Evaluate(req))
	require.False(t, req.Bypassed)
	require.NotNil(t, req.Membership)
}

func TestSuperadminRoleInTenantScopeDoesNotBypass(t *testing.T) {
	caps := newFakeCaps()
	caps.grant("root", RoleSuperadmin, permission.ScopeID(acme.ID.String()).Ptr())

	tn := acme
	err := MembershipGuard(caps).Evaluate(request(principal("root", "superadmin"), &tn))
	require.ErrorIs(t, err, ErrForbiddenNoMembership)
}

func TestSuperadminRoleWithoutTypeDoesNotBypass(t *testing.T) {
	caps := newFakeCaps()
	caps.grant("u1", RoleSuperadmin, nil)

	tn := acme
	err := MembershipGuard(caps).Evaluate(request(principal("u1", "user"), &tn))
	require.ErrorIs(t, err, ErrForbiddenNoMembership)
	require.Zero(t, caps.roleCalls)
}

func TestMembershipOfOtherTenantIsRejected(t *testing.T) {
	caps := newFakeCaps()
	other := uuid.New()
	caps.memberships = []Membership{{ID: uuid.New(), UserID: "u1", TenantID: other, Status: "active"}}

	tn := acme
	err := MembershipGuard(caps).Evaluate(request(principal("u1", "user"), &tn))
	require.ErrorIs(t, err, ErrForbiddenNoMembership)
}

// misbehavingFinder returns a record that does not match the query.
type misbehavingFinder struct{ m Membership }

func (f misbehavingFinder) ActiveMembership(context.Context, string, uuid.UUID) (Membership, error) {
	return f.m, nil
}

func TestFinderResultIsRevalidated(t *testing.T) {
	tn := acme
	testCases := map[string]Membership{
		"inactive":     {UserID: "u1", TenantID: acme.ID, Status: "suspended"},
		"wrong tenant": {UserID: "u1", TenantID: uuid.New(), Status: "active"},
		"wrong user":   {UserID: "u2", TenantID: acme.ID, Status: "active"},
	}
	for name, m := range testCases {
		t.Run(name, func(t *testing.T) {
			caps := Compose(newFakeCaps(), misbehavingFinder{m: m})
			err := MembershipGuard(caps).Evaluate(request(principal("u1", "user"), &tn))
			require.ErrorIs(t, err, ErrForbiddenNoMembership)
		})
	}
}

func TestLookupFailuresAreInternalErrors(t *testing.T) {
	tn := acme
	storeDown := errors.New("connection refused")

	caps := newFakeCaps()
	caps.memberErr = storeDown
	err := MembershipGuard(caps).Evaluate(request(principal("u1", "user"), &tn))
	require.ErrorIs(t, err, storeDown)
	_, isRejection := AsRejection(err)
	require.False(t, isRejection)
	require.Equal(t, 500, StatusFor(err))

	caps = newFakeCaps()
	caps.roleErr = storeDown
	err = MembershipGuard(caps).Evaluate(request(principal("root", "superadmin"), &tn))
	require.ErrorIs(t, err, storeDown)
	require.Zero(t, caps.memberCalls)
}

func TestSuperadminGuard(t *testing.T) {
	tn := acme

	err := SuperadminGuard().Evaluate(request(principal("u1", "user"), nil))
	require.ErrorIs(t, err, ErrForbiddenWrongType)
	require.Equal(t, 403, StatusFor(err))

	// Only the type flag matters; no tenant or role is consulted.
	require.NoError(t, SuperadminGuard().Evaluate(request(principal("root", "superadmin"), nil)))
	require.NoError(t, SuperadminGuard().Evaluate(request(principal("root", "superadmin"), &tn)))
}

func TestChainStopsAtFirstError(t *testing.T) {
	var calls []string
	step := func(name string, err error) Guard {
		return func(*Request) error {
			calls = append(calls, name)
			return err
		}
	}

	err := Chain{step("a", nil), step("b", ErrForbiddenWrongType), step("c", nil)}.Evaluate(&Request{})
	require.ErrorIs(t, err, ErrForbiddenWrongType)
	require.Equal(t, []string{"a", "b"}, calls)
}

func TestRejectionsAreDistinct(t *testing.T) {
	all := []*Rejection{ErrUnauthenticated, ErrTenantNotInitialized, ErrForbiddenNoMembership, ErrForbiddenWrongType}
	for i, a := range all {
		for j, b := range all {
			require.Equal(t, i == j, errors.Is(a, b), "%s vs %s", a.Kind, b.Kind)
		}
	}

	wrapped := fmt.Errorf("tenant route: %w", ErrTenantNotInitialized)
	require.ErrorIs(t, wrapped, ErrTenantNotInitialized)
	require.Equal(t, 500, StatusFor(wrapped))
}

func TestNewRequestReadsContext(t *testing.T) {
	ctx := platformauth.WithUser(context.Background(), principal("u1", "user"))
	ctx = tenant.WithTenant(ctx, acme)

	req := NewRequest(ctx)
	require.Equal(t, "u1", req.Principal.ID)
	require.Equal(t, acme.ID, req.Tenant.ID)

	empty := NewRequest(context.Background())
	require.Nil(t, empty.Principal)
	require.Nil(t, empty.Tenant)
}
