package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-tenancy/platform/go/tenant"
)

// Errors returned by the service layer.
var (
	ErrNotFound       = errors.New("tenant not found")
	ErrConflictSlug   = errors.New("tenant slug already exists")
	ErrConflictDomain = errors.New("domain already mapped to a tenant")
	ErrDomainNotFound = errors.New("domain not mapped to tenant")
	ErrDisabled       = errors.New("tenant disabled")
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

// Status is the lifecycle state of a tenant.
type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// ParseStatus validates a stored or requested status.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusPending, StatusActive, StatusDisabled:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown tenant status %q", s)
	}
}

// Tenant represents the domain model for a tenant registry entry.
type Tenant struct {
	ID          uuid.UUID
	Slug        string
	DisplayName *string
	Status      Status
	Domains     []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateInput represents the request to create a tenant.
type CreateInput struct {
	Slug        string
	DisplayName *string
	Status      Status
	Domains     []string
}

// UpdateInput represents mutable fields for a tenant.
type UpdateInput struct {
	DisplayName *string
	Status      *Status
}

// ListResult wraps paginated tenants.
type ListResult struct {
	Tenants    []Tenant
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// ListOptions captures filters and pagination.
type ListOptions struct {
	Page     int
	PageSize int
	Status   *Status
}

// Repository abstracts persistence.
type Repository interface {
	List(ctx context.Context, opts ListOptions) (ListResult, error)
	Create(ctx context.Context, t Tenant) (Tenant, error)
	Get(ctx context.Context, id uuid.UUID) (Tenant, error)
	Update(ctx context.Context, t Tenant) (Tenant, error)
	FindBySlug(ctx context.Context, slug string) (Tenant, error)
	FindByDomain(ctx context.Context, domain string) (Tenant, error)
	AddDomain(ctx context.Context, id uuid.UUID, domain string) error
	RemoveDomain(ctx context.Context, id uuid.UUID, domain string) error
}

// Service provides tenant registry operations. It is the provisioning side of the
// domain mapping consumed by the host resolver.
type Service struct {
	repo Repository
	now  func() time.Time
}

// New constructs a Service with required dependencies.
func New(repo Repository) *Service {
	if repo == nil {
		panic("tenants repo is required")
	}
	return &Service{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// List tenants with optional status filter.
func (s *Service) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	if opts.PageSize > 100 {
		opts.PageSize = 100
	}
	return s.repo.List(ctx, opts)
}

// Create registers a tenant and maps its initial domains.
func (s *Service) Create(ctx context.Context, input CreateInput) (Tenant, error) {
	fieldErrors := FieldErrors{}

	slug, err := tenant.NormalizeSlug(input.Slug)
	if err != nil {
		fieldErrors.add("slug", err.Error())
	}

	status := input.Status
	if status == "" {
		status = StatusActive
	}
	if _, err := ParseStatus(string(status)); err != nil {
		fieldErrors.add("status", err.Error())
	}

	domains := make([]string, 0, len(input.Domains))
	for _, raw := range input.Domains {
		d, err := normalizeDomain(raw)
		if err != nil {
			fieldErrors.add("domains", err.Error())
			continue
		}
		domains = append(domains, d)
	}

	if len(fieldErrors) > 0 {
		return Tenant{}, &ValidationError{Fields: fieldErrors}
	}

	for _, d := range domains {
		_, err := s.repo.FindByDomain(ctx, d)
		switch {
		case err == nil:
			return Tenant{}, fmt.Errorf("%s: %w", d, ErrConflictDomain)
		case !errors.Is(err, ErrNotFound):
			return Tenant{}, err
		}
	}

	now := s.now()
	created, err := s.repo.Create(ctx, Tenant{
		ID:          uuid.New(),
		Slug:        slug,
		DisplayName: trimmedPtr(input.DisplayName),
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return Tenant{}, err
	}

	for _, d := range domains {
		if err := s.repo.AddDomain(ctx, created.ID, d); err != nil {
			return Tenant{}, fmt.Errorf("map domain %s: %w", d, err)
		}
	}
	if len(domains) == 0 {
		return created, nil
	}
	return s.repo.Get(ctx, created.ID)
}

// Get returns a tenant by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Tenant, error) {
	return s.repo.Get(ctx, id)
}

// GetBySlug returns a tenant by its slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (Tenant, error) {
	normalized, err := tenant.NormalizeSlug(slug)
	if err != nil {
		return Tenant{}, &ValidationError{Fields: FieldErrors{"slug": {err.Error()}}}
	}
	return s.repo.FindBySlug(ctx, normalized)
}

// Update modifies mutable fields of a tenant.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Tenant, error) {
	if input.Status != nil {
		if _, err := ParseStatus(string(*input.Status)); err != nil {
			return Tenant{}, &ValidationError{Fields: FieldErrors{"status": {err.Error()}}}
		}
	}

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Tenant{}, err
	}

	next := current
	if input.DisplayName != nil {
		next.DisplayName = trimmedPtr(input.DisplayName)
	}
	if input.Status != nil {
		next.Status = *input.Status
	}
	next.UpdatedAt = s.now()

	return s.repo.Update(ctx, next)
}

// AddDomain maps a host to the tenant. A domain belongs to at most one tenant.
func (s *Service) AddDomain(ctx context.Context, id uuid.UUID, domain string) (Tenant, error) {
	d, err := normalizeDomain(domain)
	if err != nil {
		return Tenant{}, &ValidationError{Fields: FieldErrors{"domain": {err.Error()}}}
	}
	if _, err := s.repo.Get(ctx, id); err != nil {
		return Tenant{}, err
	}
	if err := s.repo.AddDomain(ctx, id, d); err != nil {
		return Tenant{}, err
	}
	return s.repo.Get(ctx, id)
}

// RemoveDomain unmaps a host from the tenant; requests on it fall back to the central context.
func (s *Service) RemoveDomain(ctx context.Context, id uuid.UUID, domain string) (Tenant, error) {
	d := tenant.NormalizeHost(domain)
	if err := s.repo.RemoveDomain(ctx, id, d); err != nil {
		return Tenant{}, err
	}
	return s.repo.Get(ctx, id)
}

// ResolveTenantByDomain maps a request domain to its tenant for the host resolver.
// Unmapped domains and disabled tenants both report tenant.ErrNoTenant.
func (s *Service) ResolveTenantByDomain(ctx context.Context, domain string) (tenant.Tenant, error) {
	d := tenant.NormalizeHost(domain)
	if d == "" {
		return tenant.Tenant{}, tenant.ErrNoTenant
	}

	t, err := s.repo.FindByDomain(ctx, d)
	if errors.Is(err, ErrNotFound) {
		return tenant.Tenant{}, tenant.ErrNoTenant
	}
	if err != nil {
		return tenant.Tenant{}, fmt.Errorf("find tenant by domain: %w", err)
	}
	if t.Status == StatusDisabled {
		return tenant.Tenant{}, fmt.Errorf("%w: %w", tenant.ErrNoTenant, ErrDisabled)
	}

	return tenant.Tenant{ID: t.ID, Slug: t.Slug, Domain: d}, nil
}

func normalizeDomain(raw string) (string, error) {
	d := tenant.NormalizeHost(raw)
	if d == "" {
		return "", errors.New("domain is required")
	}
	if strings.ContainsAny(d, "/ @?#") {
		return "", fmt.Errorf("invalid domain %q", raw)
	}
	return d, nil
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}
