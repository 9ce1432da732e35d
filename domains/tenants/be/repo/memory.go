package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-tenancy/domains/tenants/be/service"
)

// MemoryRepository is a simple in-memory implementation suitable for tests and early development.
type MemoryRepository struct {
	mu       sync.RWMutex
	byID     map[uuid.UUID]service.Tenant
	bySlug   map[string]uuid.UUID
	byDomain map[string]uuid.UUID
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:     make(map[uuid.UUID]service.Tenant),
		bySlug:   make(map[string]uuid.UUID),
		byDomain: make(map[string]uuid.UUID),
	}
}

func (r *MemoryRepository) List(ctx context.Context, opts service.ListOptions) (service.ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]service.Tenant, 0, len(r.byID))
	for id, t := range r.byID {
		if opts.Status != nil && t.Status != *opts.Status {
			continue
		}
		items = append(items, r.withDomains(id, t))
	}

	sort.Slice(items, func(i, j int) bool { return items[i].CreatedAt.Before(items[j].CreatedAt) })

	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}

	paged := items[start:end]
	totalPages := (len(items) + pageSize - 1) / pageSize

	return service.ListResult{
		Tenants:    paged,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: len(items),
		TotalPages: totalPages,
	}, nil
}

func (r *MemoryRepository) Create(ctx context.Context, t service.Tenant) (service.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySlug[t.Slug]; exists {
		return service.Tenant{}, service.ErrConflictSlug
	}

	t.Domains = nil
	r.byID[t.ID] = t
	r.bySlug[t.Slug] = t.ID
	return t, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id uuid.UUID) (service.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[id]
	if !ok {
		return service.Tenant{}, service.ErrNotFound
	}
	return r.withDomains(id, t), nil
}

func (r *MemoryRepository) Update(ctx context.Context, t service.Tenant) (service.Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[t.ID]
	if !ok {
		return service.Tenant{}, service.ErrNotFound
	}

	current.DisplayName = t.DisplayName
	current.Status = t.Status
	current.UpdatedAt = t.UpdatedAt
	r.byID[t.ID] = current
	return r.withDomains(t.ID, current), nil
}

func (r *MemoryRepository) FindBySlug(ctx context.Context, slug string) (service.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.bySlug[slug]
	if !ok {
		return service.Tenant{}, service.ErrNotFound
	}
	return r.withDomains(id, r.byID[id]), nil
}

func (r *MemoryRepository) FindByDomain(ctx context.Context, domain string) (service.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byDomain[domain]
	if !ok {
		return service.Tenant{}, service.ErrNotFound
	}
	return r.withDomains(id, r.byID[id]), nil
}

func (r *MemoryRepository) AddDomain(ctx context.Context, id uuid.UUID, domain string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return service.ErrNotFound
	}
	if _, taken := r.byDomain[domain]; taken {
		return service.ErrConflictDomain
	}
	r.byDomain[domain] = id
	return nil
}

func (r *MemoryRepository) RemoveDomain(ctx context.Context, id uuid.UUID, domain string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.byDomain[domain]
	if !ok || owner != id {
		return service.ErrDomainNotFound
	}
	delete(r.byDomain, domain)
	return nil
}

// withDomains must be called with the lock held.
func (r *MemoryRepository) withDomains(id uuid.UUID, t service.Tenant) service.Tenant {
	var domains []string
	for d, owner := range r.byDomain {
		if owner == id {
			domains = append(domains, d)
		}
	}
	sort.Strings(domains)
	t.Domains = domains
	return t
}

// Ensure interface compliance.
var _ service.Repository = (*MemoryRepository)(nil)
