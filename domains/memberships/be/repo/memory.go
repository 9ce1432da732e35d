package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-tenancy/domains/memberships/be/service"
)

// TenantExists reports whether a tenant is registered.
type TenantExists func(ctx context.Context, id uuid.UUID) (bool, error)

// MemoryRepository is an in-memory membership table for tests and local runs. Like the
// postgres table it allows one active membership per tenant and user.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]service.Membership
	tenants TenantExists
}

// NewMemoryRepository constructs a MemoryRepository. A nil tenants check accepts any tenant.
func NewMemoryRepository(tenants TenantExists) *MemoryRepository {
	return &MemoryRepository{byID: make(map[uuid.UUID]service.Membership), tenants: tenants}
}

func (r *MemoryRepository) Create(ctx context.Context, m service.Membership) (service.Membership, error) {
	if r.tenants != nil {
		ok, err := r.tenants(ctx, m.TenantID)
		if err != nil {
			return service.Membership{}, err
		}
		if !ok {
			return service.Membership{}, service.ErrTenantNotFound
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if m.Status == service.StatusActive && r.hasOtherActive(m) {
		return service.Membership{}, service.ErrAlreadyMember
	}
	r.byID[m.ID] = m
	return m, nil
}

func (r *MemoryRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (service.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok || m.TenantID != tenantID {
		return service.Membership{}, service.ErrNotFound
	}
	return m, nil
}

func (r *MemoryRepository) SetStatus(ctx context.Context, tenantID, id uuid.UUID, status service.Status, at time.Time) (service.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok || m.TenantID != tenantID {
		return service.Membership{}, service.ErrNotFound
	}
	m.Status = status
	if status == service.StatusActive && r.hasOtherActive(m) {
		return service.Membership{}, service.ErrAlreadyMember
	}
	m.UpdatedAt = at
	r.byID[id] = m
	return m, nil
}

func (r *MemoryRepository) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]service.Membership, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []service.Membership
	for _, m := range r.byID {
		if m.TenantID == tenantID {
			out = append(out, m)
		}
	}
	sortOldestFirst(out)
	return out, nil
}

func (r *MemoryRepository) FindActive(ctx context.Context, tenantID uuid.UUID, userID string) (service.Membership, error) {
	all, _ := r.ListForTenant(ctx, tenantID)
	for _, m := range all {
		if m.UserID == userID && m.Status == service.StatusActive {
			return m, nil
		}
	}
	return service.Membership{}, service.ErrNotFound
}

// hasOtherActive must be called with r.mu held.
func (r *MemoryRepository) hasOtherActive(m service.Membership) bool {
	for id, other := range r.byID {
		if id != m.ID && other.TenantID == m.TenantID && other.UserID == m.UserID && other.Status == service.StatusActive {
			return true
		}
	}
	return false
}

func sortOldestFirst(items []service.Membership) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID.String() < items[j].ID.String()
	})
}

// Ensure interface compliance.
var _ service.Repository = (*MemoryRepository)(nil)
