package requesttrace

import (
	"context"
	"errors"

	platformauth "github.com/zenGate-Global/palmyra-tenancy/platform/go/auth"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/tenant"
)

type contextKey string

const (
	ctxAuditInfo contextKey = "PALMYRA_REQUEST_TRACE"
)

// ActorKind represents who initiated a request.
type ActorKind string

const (
	ActorKindUser      ActorKind = "user"
	ActorKindAnonymous ActorKind = "anonymous"
	ActorKindSystem    ActorKind = "system"
)

// AuditInfo is the request-scoped record of who acted, in which tenant, and under which
// grant. UserID and PrincipalType are set only for users; TenantID is nil in the central
// context. MembershipID and Bypassed are stamped by the tenant membership guard.
type AuditInfo struct {
	ActorKind     ActorKind
	UserID        *string
	PrincipalType string
	TenantID      *string
	MembershipID  *string
	Bypassed      bool
	RequestID     string
}

// IntoContext stores the AuditInfo in the provided context.
func IntoContext(ctx context.Context, audit AuditInfo) context.Context {
	return context.WithValue(ctx, ctxAuditInfo, audit)
}

// FromContext extracts the AuditInfo from context, returning false when not present.
func FromContext(ctx context.Context) (AuditInfo, bool) {
	if ctx == nil {
		return AuditInfo{}, false
	}
	v := ctx.Value(ctxAuditInfo)
	if v == nil {
		return AuditInfo{}, false
	}

	audit, ok := v.(AuditInfo)
	return audit, ok
}

// FromContextOrAnonymous returns the AuditInfo stored on the context, or an anonymous record when absent.
func FromContextOrAnonymous(ctx context.Context) AuditInfo {
	if audit, ok := FromContext(ctx); ok {
		return audit
	}
	return Anonymous("")
}

// FromCredentials builds an AuditInfo from authenticated user credentials and a request ID.
// Returns an error when creds are nil or missing a UserID.
func FromCredentials(creds *platformauth.UserCredentials, requestID string) (AuditInfo, error) {
	if creds == nil {
		return AuditInfo{}, errors.New("credentials are required to build audit info")
	}
	if creds.ID == "" {
		return AuditInfo{}, errors.New("user id is required to build audit info")
	}

	id := creds.ID
	return AuditInfo{
		ActorKind:     ActorKindUser,
		UserID:        &id,
		PrincipalType: creds.Type,
		RequestID:     requestID,
	}, nil
}

// WithTenant stamps the resolved tenant on the audit record.
func (a AuditInfo) WithTenant(t tenant.Tenant) AuditInfo {
	id := t.ID.String()
	a.TenantID = &id
	return a
}

// WithAccess stamps how the tenant guard authorized the request: through a membership, or
// through the superadmin bypass (membershipID empty).
func (a AuditInfo) WithAccess(membershipID string, bypassed bool) AuditInfo {
	if membershipID != "" {
		a.MembershipID = &membershipID
	}
	a.Bypassed = bypassed
	return a
}

// ActorID names the actor for created_by style columns: the user id, "system", or "" for
// anonymous requests.
func (a AuditInfo) ActorID() string {
	switch a.ActorKind {
	case ActorKindUser:
		if a.UserID != nil {
			return *a.UserID
		}
	case ActorKindSystem:
		return string(ActorKindSystem)
	}
	return ""
}

// Anonymous builds an AuditInfo for unauthenticated requests where no user ID exists.
func Anonymous(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindAnonymous, RequestID: requestID}
}

// System builds an AuditInfo for background/system operations such as CLI jobs.
func System(requestID string) AuditInfo {
	return AuditInfo{ActorKind: ActorKindSystem, RequestID: requestID}
}
