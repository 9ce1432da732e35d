package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-tenancy/platform/go/access"
)

// Errors returned by the service layer.
var (
	ErrNotFound       = errors.New("membership not found")
	ErrAlreadyMember  = errors.New("user already has an active membership in tenant")
	ErrTenantNotFound = errors.New("tenant not found")
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

func (f FieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Status is the lifecycle state of a membership. Only active memberships grant access.
type Status string

const (
	StatusActive    Status = access.MembershipStatusActive
	StatusInvited   Status = "invited"
	StatusSuspended Status = "suspended"
)

// ParseStatus validates a stored or requested status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusActive, StatusInvited, StatusSuspended:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown membership status %q", s)
	}
}

// Membership links a principal to a tenant.
type Membership struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	UserID    string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository abstracts persistence. Create and SetStatus return ErrAlreadyMember when the
// write would leave a user with two active memberships in one tenant, and Create returns
// ErrTenantNotFound for an unknown tenant.
type Repository interface {
	Create(ctx context.Context, m Membership) (Membership, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (Membership, error)
	SetStatus(ctx context.Context, tenantID, id uuid.UUID, status Status, at time.Time) (Membership, error)
	ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]Membership, error)
	// FindActive returns the earliest-created active membership, or ErrNotFound.
	FindActive(ctx context.Context, tenantID uuid.UUID, userID string) (Membership, error)
}

// Service manages tenant memberships and answers the tenant guard's membership lookups.
type Service struct {
	repo Repository
	now  func() time.Time
}

// New constructs a Service with required dependencies.
func New(repo Repository) *Service {
	if repo == nil {
		panic("memberships repo is required")
	}
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Add creates a membership. Adding a user who is already an active member is a conflict.
func (s *Service) Add(ctx context.Context, tenantID uuid.UUID, userID string, status Status) (Membership, error) {
	fieldErrors := FieldErrors{}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		fieldErrors.add("userId", "userId is required")
	}
	if tenantID == uuid.Nil {
		fieldErrors.add("tenantId", "tenantId is required")
	}
	if status == "" {
		status = StatusActive
	}
	if _, err := ParseStatus(string(status)); err != nil {
		fieldErrors.add("status", err.Error())
	}
	if len(fieldErrors) > 0 {
		return Membership{}, &ValidationError{Fields: fieldErrors}
	}

	_, err := s.repo.FindActive(ctx, tenantID, userID)
	switch {
	case err == nil:
		return Membership{}, ErrAlreadyMember
	case !errors.Is(err, ErrNotFound):
		return Membership{}, err
	}

	now := s.now()
	return s.repo.Create(ctx, Membership{
		ID:        uuid.New(),
		TenantID:  tenantID,
		UserID:    userID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Get returns a membership of the tenant.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (Membership, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// SetStatus moves a membership to status.
func (s *Service) SetStatus(ctx context.Context, tenantID, id uuid.UUID, status Status) (Membership, error) {
	if _, err := ParseStatus(string(status)); err != nil {
		return Membership{}, &ValidationError{Fields: FieldErrors{"status": {err.Error()}}}
	}
	return s.repo.SetStatus(ctx, tenantID, id, status, s.now())
}

// ListForTenant returns every membership of the tenant, oldest first.
func (s *Service) ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]Membership, error) {
	return s.repo.ListForTenant(ctx, tenantID)
}

// FindActive returns the membership that authorizes userID in tenantID.
func (s *Service) FindActive(ctx context.Context, tenantID uuid.UUID, userID string) (Membership, error) {
	return s.repo.FindActive(ctx, tenantID, userID)
}

// ActiveMembership implements access.MembershipFinder.
func (s *Service) ActiveMembership(ctx context.Context, principalID string, tenantID uuid.UUID) (access.Membership, error) {
	m, err := s.repo.FindActive(ctx, tenantID, principalID)
	if errors.Is(err, ErrNotFound) {
		return access.Membership{}, access.ErrNoMembership
	}
	if err != nil {
		return access.Membership{}, fmt.Errorf("find active membership: %w", err)
	}
	return access.Membership{
		ID:        m.ID,
		UserID:    m.UserID,
		TenantID:  m.TenantID,
		Status:    string(m.Status),
		CreatedAt: m.CreatedAt,
	}, nil
}

var _ access.MembershipFinder = (*Service)(nil)
