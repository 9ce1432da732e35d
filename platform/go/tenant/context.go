package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNoTenant is returned by resolvers when a domain maps to no tenant.
// Callers treat it as the central/admin context rather than a failure.
var ErrNoTenant = errors.New("no tenant for domain")

// Tenant captures the tenant resolved for the current request.
// It is attached to the context by the host resolver middleware and is read-only afterwards.
type Tenant struct {
	ID     uuid.UUID
	Slug   string
	Domain string
}

// ScopeKey returns the identifier used to scope role/permission lookups for this tenant.
func (t Tenant) ScopeKey() string {
	return t.ID.String()
}

type ctxKey string

const tenantKey ctxKey = "PALMYRA_TENANT"

// WithTenant returns a derived context carrying the resolved tenant.
func WithTenant(ctx context.Context, t Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, t)
}

// FromContext extracts the resolved tenant and a boolean indicating presence.
// A zero tenant ID is reported as absent.
func FromContext(ctx context.Context) (Tenant, bool) {
	if ctx == nil {
		return Tenant{}, false
	}
	v := ctx.Value(tenantKey)
	if v == nil {
		return Tenant{}, false
	}

	t, ok := v.(Tenant)
	if !ok || t.ID == uuid.Nil {
		return Tenant{}, false
	}
	return t, true
}
