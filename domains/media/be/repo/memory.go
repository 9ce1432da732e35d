package repo

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-tenancy/domains/media/be/service"
)

// MemoryRepository is an in-memory asset table for tests and local runs.
type MemoryRepository struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]service.Asset
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[uuid.UUID]service.Asset)}
}

func (r *MemoryRepository) Create(ctx context.Context, a service.Asset) (service.Asset, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[a.ID] = a
	return a, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id uuid.UUID) (service.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return service.Asset{}, service.ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return service.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *MemoryRepository) DeleteForTenant(ctx context.Context, tenantID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, a := range r.byID {
		if a.TenantID != nil && *a.TenantID == tenantID {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}

// Ensure interface compliance.
var _ service.Repository = (*MemoryRepository)(nil)
