// Package access authorizes requests against the resolved tenant.
//
// Guards are plain functions evaluated in order over a Request; the first error stops the
// chain. Rejections are *Rejection values, anything else is an internal failure (for
// example the membership store being unavailable) and must never be read as "no access".
package access

import (
	"context"
	"errors"
	"fmt"

	platformauth "github.com/zenGate-Global/palmyra-tenancy/platform/go/auth"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/tenant"
)

// Request is the per-request state the guards read and enrich.
type Request struct {
	Ctx       context.Context
	Principal *platformauth.UserCredentials
	Tenant    *tenant.Tenant

	// Set by TenantMember on success.
	Membership *Membership
	// Bypassed is true when the superadmin bypass authorized the request.
	Bypassed bool
}

// NewRequest builds a Request from the principal and tenant attached to ctx.
func NewRequest(ctx context.Context) *Request {
	req := &Request{Ctx: ctx}
	if creds, ok := platformauth.UserFromContext(ctx); ok && creds != nil {
		req.Principal = creds
	}
	if t, ok := tenant.FromContext(ctx); ok {
		req.Tenant = &t
	}
	return req
}

// Guard either lets the request continue (nil) or stops it.
type Guard func(req *Request) error

// Chain is an ordered list of guards.
type Chain []Guard

// Evaluate runs the guards in order and returns the first error.
func (c Chain) Evaluate(req *Request) error {
	for _, g := range c {
		if err := g(req); err != nil {
			return err
		}
	}
	return nil
}

// MembershipGuard authorizes tenant routes: an authenticated principal, a resolved tenant,
// and either the superadmin bypass or an active membership.
func MembershipGuard(caps Capabilities) Chain {
	return Chain{Authenticated, TenantInitialized, TenantMember(caps)}
}

// SuperadminGuard restricts central routes to the superadmin principal type.
func SuperadminGuard() Chain {
	return Chain{Authenticated, SuperadminType}
}

// Authenticated rejects requests with no principal attached.
func Authenticated(req *Request) error {
	if req.Principal == nil || req.Principal.ID == "" {
		return ErrUnauthenticated
	}
	return nil
}

// TenantInitialized rejects requests that reached a tenant-only route without a tenant.
func TenantInitialized(req *Request) error {
	if req.Tenant == nil {
		return ErrTenantNotInitialized
	}
	return nil
}

// SuperadminType passes only principals whose type is superadmin. No role is consulted.
func SuperadminType(req *Request) error {
	if err := Authenticated(req); err != nil {
		return err
	}
	if !req.Principal.IsSuperadminType() {
		return ErrForbiddenWrongType
	}
	return nil
}

// TenantMember authorizes a principal within the resolved tenant.
//
// The bypass needs both the superadmin type and the superadmin role in the global scope;
// either alone falls through to the membership lookup.
func TenantMember(caps Capabilities) Guard {
	if caps == nil {
		panic("access: capabilities are required")
	}

	return func(req *Request) error {
		if err := Authenticated(req); err != nil {
			return err
		}
		if err := TenantInitialized(req); err != nil {
			return err
		}

		ctx := req.Ctx
		if ctx == nil {
			ctx = context.Background()
		}
		principalID := req.Principal.ID

		if req.Principal.IsSuperadminType() {
			ok, err := caps.HasRole(ctx, principalID, RoleSuperadmin, nil)
			if err != nil {
				return fmt.Errorf("check superadmin role: %w", err)
			}
			if ok {
				req.Bypassed = true
				return nil
			}
		}

		m, err := caps.ActiveMembership(ctx, principalID, req.Tenant.ID)
		if errors.Is(err, ErrNoMembership) {
			return ErrForbiddenNoMembership
		}
		if err != nil {
			return fmt.Errorf("lookup membership: %w", err)
		}
		if !m.IsActive() || m.TenantID != req.Tenant.ID || m.UserID != principalID {
			return ErrForbiddenNoMembership
		}

		req.Membership = &m
		return nil
	}
}
