package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/zenGate-Global/palmyra-tenancy/domains/roles/be/service"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/permission"
)

type key struct {
	user  string
	role  string
	scope string
	team  bool
}

func keyFor(userID, role string, scope *permission.ScopeID) key {
	k := key{user: userID, role: role}
	if scope != nil {
		k.scope, k.team = string(*scope), true
	}
	return k
}

// MemoryRepository is an in-memory assignment table for tests and local runs.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[key]service.Assignment
}

// NewMemoryRepository constructs a MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{items: make(map[key]service.Assignment)}
}

func (r *MemoryRepository) Assign(ctx context.Context, a service.Assignment) (service.Assignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := keyFor(a.UserID, a.Role, a.Scope)
	if _, exists := r.items[k]; exists {
		return service.Assignment{}, service.ErrAlreadyAssigned
	}
	r.items[k] = a
	return a, nil
}

func (r *MemoryRepository) Revoke(ctx context.Context, userID, role string, scope *permission.ScopeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := keyFor(userID, role, scope)
	if _, exists := r.items[k]; !exists {
		return service.ErrNotFound
	}
	delete(r.items, k)
	return nil
}

func (r *MemoryRepository) Has(ctx context.Context, userID, role string, scope *permission.ScopeID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.items[keyFor(userID, role, scope)]
	return ok, nil
}

func (r *MemoryRepository) RolesOf(ctx context.Context, userID string, scope *permission.ScopeID) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := keyFor(userID, "", scope)
	var roles []string
	for k := range r.items {
		if k.user == want.user && k.team == want.team && k.scope == want.scope {
			roles = append(roles, k.role)
		}
	}
	sort.Strings(roles)
	return roles, nil
}

// Ensure interface compliance.
var _ service.Repository = (*MemoryRepository)(nil)
