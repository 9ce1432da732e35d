// Package permission resolves the "team" scope that partitions role and permission
// assignments per tenant.
//
// Lookup order for Current: the tenant resolved for the request, then a scope carried on
// the context via WithScope, then the explicit override held by Scopes. No value means
// the global (central) scope.
package permission

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-tenancy/platform/go/tenant"
)

// ScopeID identifies a permission team; it is the tenant identifier in string form.
type ScopeID string

// Identifiable is implemented by entities that can stand in for a scope identifier.
type Identifiable interface {
	ScopeKey() string
}

// Ptr returns a pointer to id, or nil for the empty id.
func (id ScopeID) Ptr() *ScopeID {
	if id == "" {
		return nil
	}
	return &id
}

// String renders the scope, using "global" for nil.
func String(s *ScopeID) string {
	if s == nil {
		return "global"
	}
	return string(*s)
}

// Normalize converts the accepted scope inputs into a scope pointer.
// Accepted: nil, ScopeID, *ScopeID, string, uuid.UUID, Identifiable. Blank values and
// uuid.Nil normalise to nil.
func Normalize(v any) (*ScopeID, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case ScopeID:
		return ScopeID(strings.TrimSpace(string(val))).Ptr(), nil
	case *ScopeID:
		if val == nil {
			return nil, nil
		}
		return ScopeID(strings.TrimSpace(string(*val))).Ptr(), nil
	case string:
		return ScopeID(strings.TrimSpace(val)).Ptr(), nil
	case uuid.UUID:
		if val == uuid.Nil {
			return nil, nil
		}
		return ScopeID(val.String()).Ptr(), nil
	case Identifiable:
		return ScopeID(strings.TrimSpace(val.ScopeKey())).Ptr(), nil
	default:
		return nil, fmt.Errorf("unsupported scope value %T", v)
	}
}

type ctxKey struct{}

// WithScope returns a context carrying an explicit scope for code paths without a resolved tenant.
func WithScope(ctx context.Context, v any) (context.Context, error) {
	scope, err := Normalize(v)
	if err != nil {
		return ctx, err
	}
	return context.WithValue(ctx, ctxKey{}, scopeValue{scope: scope}), nil
}

type scopeValue struct {
	scope *ScopeID
}

// Scopes holds the explicit, process-lifetime scope override used by jobs and CLI
// commands that run without a request tenant. The zero value is ready to use.
type Scopes struct {
	mu       sync.RWMutex
	explicit *ScopeID
}

// NewScopes returns an empty resolver.
func NewScopes() *Scopes {
	return &Scopes{}
}

// Current returns the scope to apply to role/permission queries for ctx.
func (s *Scopes) Current(ctx context.Context) *ScopeID {
	if t, ok := tenant.FromContext(ctx); ok {
		return ScopeID(t.ScopeKey()).Ptr()
	}
	if ctx != nil {
		if v, ok := ctx.Value(ctxKey{}).(scopeValue); ok {
			return copyScope(v.scope)
		}
	}
	return s.Explicit()
}

// Explicit returns the override set through Set, or nil.
func (s *Scopes) Explicit() *ScopeID {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyScope(s.explicit)
}

// Set replaces the explicit override. See Normalize for accepted values.
func (s *Scopes) Set(v any) error {
	scope, err := Normalize(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.explicit = scope
	s.mu.Unlock()
	return nil
}

// Clear drops the explicit override, returning to the global scope.
func (s *Scopes) Clear() {
	s.mu.Lock()
	s.explicit = nil
	s.mu.Unlock()
}

// Run executes fn with v as the scope carried on fn's context. The shared override is
// left untouched, so concurrent Runs never observe or restore each other's scope.
func (s *Scopes) Run(ctx context.Context, v any, fn func(ctx context.Context) error) error {
	scoped, err := WithScope(ctx, v)
	if err != nil {
		return err
	}
	return fn(scoped)
}

func copyScope(s *ScopeID) *ScopeID {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
