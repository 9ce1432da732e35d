package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-tenancy/platform/go/access"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/permission"
)

// Errors returned by the service layer.
var (
	ErrNotFound        = errors.New("role assignment not found")
	ErrAlreadyAssigned = errors.New("role already assigned in scope")
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

var roleNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_.:-]{0,62}$`)

// Assignment grants Role to UserID within Scope. A nil Scope is the global scope.
type Assignment struct {
	ID        uuid.UUID
	UserID    string
	Role      string
	Scope     *permission.ScopeID
	CreatedAt time.Time
}

// Repository abstracts persistence. Every call matches the scope exactly.
type Repository interface {
	Assign(ctx context.Context, a Assignment) (Assignment, error)
	Revoke(ctx context.Context, userID, role string, scope *permission.ScopeID) error
	Has(ctx context.Context, userID, role string, scope *permission.ScopeID) (bool, error)
	RolesOf(ctx context.Context, userID string, scope *permission.ScopeID) ([]string, error)
}

// Service manages team-scoped role assignments.
//
// Assign, Revoke and RolesOf apply the scope reported by Scopes.Current for the call's
// context. The *In variants and HasRole take the scope explicitly.
type Service struct {
	repo   Repository
	scopes *permission.Scopes
	now    func() time.Time
}

// New constructs a Service with required dependencies.
func New(repo Repository, scopes *permission.Scopes) *Service {
	if repo == nil {
		panic("roles repo is required")
	}
	if scopes == nil {
		panic("permission scopes are required")
	}
	return &Service{repo: repo, scopes: scopes, now: func() time.Time { return time.Now().UTC() }}
}

// Assign grants role to userID in the current scope.
func (s *Service) Assign(ctx context.Context, userID, role string) (Assignment, error) {
	return s.AssignIn(ctx, userID, role, s.scopes.Current(ctx))
}

// AssignIn grants role to userID in scope.
func (s *Service) AssignIn(ctx context.Context, userID, role string, scope *permission.ScopeID) (Assignment, error) {
	userID, role, err := validate(userID, role)
	if err != nil {
		return Assignment{}, err
	}
	return s.repo.Assign(ctx, Assignment{
		ID:        uuid.New(),
		UserID:    userID,
		Role:      role,
		Scope:     scope,
		CreatedAt: s.now(),
	})
}

// Revoke removes role from userID in the current scope.
func (s *Service) Revoke(ctx context.Context, userID, role string) error {
	return s.RevokeIn(ctx, userID, role, s.scopes.Current(ctx))
}

// RevokeIn removes role from userID in scope.
func (s *Service) RevokeIn(ctx context.Context, userID, role string, scope *permission.ScopeID) error {
	userID, role, err := validate(userID, role)
	if err != nil {
		return err
	}
	return s.repo.Revoke(ctx, userID, role, scope)
}

// RolesOf lists the roles userID holds in the current scope.
func (s *Service) RolesOf(ctx context.Context, userID string) ([]string, error) {
	return s.RolesIn(ctx, userID, s.scopes.Current(ctx))
}

// RolesIn lists the roles userID holds in scope.
func (s *Service) RolesIn(ctx context.Context, userID string, scope *permission.ScopeID) ([]string, error) {
	roles, err := s.repo.RolesOf(ctx, strings.TrimSpace(userID), scope)
	if err != nil {
		return nil, fmt.Errorf("list roles in %s: %w", permission.String(scope), err)
	}
	if roles == nil {
		roles = []string{}
	}
	return roles, nil
}

// HasRole implements access.RoleChecker.
func (s *Service) HasRole(ctx context.Context, principalID, role string, scope *permission.ScopeID) (bool, error) {
	return s.repo.Has(ctx, principalID, role, scope)
}

// CurrentScope exposes the scope Assign, Revoke and RolesOf would apply for ctx.
func (s *Service) CurrentScope(ctx context.Context) *permission.ScopeID {
	return s.scopes.Current(ctx)
}

func validate(userID, role string) (string, string, error) {
	fields := FieldErrors{}
	userID = strings.TrimSpace(userID)
	role = strings.ToLower(strings.TrimSpace(role))
	if userID == "" {
		fields["userId"] = append(fields["userId"], "userId is required")
	}
	if !roleNamePattern.MatchString(role) {
		fields["role"] = append(fields["role"], fmt.Sprintf("invalid role name %q", role))
	}
	if len(fields) > 0 {
		return "", "", &ValidationError{Fields: fields}
	}
	return userID, role, nil
}

var _ access.RoleChecker = (*Service)(nil)
