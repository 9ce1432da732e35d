package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-tenancy/domains/tenants/be/service"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/httpjson"
	platformlogging "github.com/zenGate-Global/palmyra-tenancy/platform/go/logging"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/problems"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/tenant"
)

type operation string

const (
	listOperation         operation = "tenantsList"
	createOperation       operation = "tenantsCreate"
	getOperation          operation = "tenantsGet"
	updateOperation       operation = "tenantsUpdate"
	addDomainOperation    operation = "tenantsAddDomain"
	removeDomainOperation operation = "tenantsRemoveDomain"
)

// Service is the subset of the tenants service used over HTTP.
type Service interface {
	List(ctx context.Context, opts service.ListOptions) (service.ListResult, error)
	Create(ctx context.Context, input service.CreateInput) (service.Tenant, error)
	Get(ctx context.Context, id uuid.UUID) (service.Tenant, error)
	Update(ctx context.Context, id uuid.UUID, input service.UpdateInput) (service.Tenant, error)
	AddDomain(ctx context.Context, id uuid.UUID, domain string) (service.Tenant, error)
	RemoveDomain(ctx context.Context, id uuid.UUID, domain string) (service.Tenant, error)
}

// Handler wires the tenants service to the admin HTTP contract.
type Handler struct {
	svc    Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("tenants service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// MountAdmin registers the registry routes on a superadmin-only router.
func (h *Handler) MountAdmin(r chi.Router) {
	r.Get("/tenants", h.TenantsList)
	r.Post("/tenants", h.TenantsCreate)
	r.Get("/tenants/{tenantId}", h.TenantsGet)
	r.Patch("/tenants/{tenantId}", h.TenantsUpdate)
	r.Post("/tenants/{tenantId}/domains", h.TenantsAddDomain)
	r.Delete("/tenants/{tenantId}/domains/{domain}", h.TenantsRemoveDomain)
}

type tenantBody struct {
	TenantID    string    `json:"tenantId"`
	Slug        string    `json:"slug"`
	DisplayName *string   `json:"displayName,omitempty"`
	Status      string    `json:"status"`
	Domains     []string  `json:"domains"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type listBody struct {
	Items      []tenantBody `json:"items"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalItems int          `json:"totalItems"`
	TotalPages int          `json:"totalPages"`
}

type createRequest struct {
	Slug        string   `json:"slug"`
	DisplayName *string  `json:"displayName,omitempty"`
	Status      *string  `json:"status,omitempty"`
	Domains     []string `json:"domains,omitempty"`
}

type updateRequest struct {
	DisplayName *string `json:"displayName,omitempty"`
	Status      *string `json:"status,omitempty"`
}

type domainRequest struct {
	Domain string `json:"domain"`
}

type currentTenantBody struct {
	TenantID string `json:"tenantId"`
	Slug     string `json:"slug"`
	Domain   string `json:"domain"`
}

// TenantsList implements GET /admin/tenants
func (h *Handler) TenantsList(w http.ResponseWriter, r *http.Request) {
	opts, err := buildListOptions(r)
	if err != nil {
		h.writeProblem(w, r, listOperation, err)
		return
	}

	result, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.writeProblem(w, r, listOperation, err)
		return
	}

	items := make([]tenantBody, 0, len(result.Tenants))
	for _, t := range result.Tenants {
		items = append(items, toBody(t))
	}
	httpjson.Write(w, http.StatusOK, listBody{
		Items:      items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	})
}

// TenantsCreate implements POST /admin/tenants
func (h *Handler) TenantsCreate(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if err := httpjson.Decode(r, &body); err != nil {
		h.writeProblem(w, r, createOperation, problems.BadRequest(err, nil))
		return
	}

	input := service.CreateInput{
		Slug:        body.Slug,
		DisplayName: body.DisplayName,
		Domains:     body.Domains,
	}
	if body.Status != nil {
		input.Status = service.Status(*body.Status)
	}

	t, err := h.svc.Create(r.Context(), input)
	if err != nil {
		h.writeProblem(w, r, createOperation, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/admin/tenants/%s", t.ID))
	httpjson.Write(w, http.StatusCreated, toBody(t))
}

// TenantsGet implements GET /admin/tenants/{tenantId}
func (h *Handler) TenantsGet(w http.ResponseWriter, r *http.Request) {
	id, err := tenantIDParam(r)
	if err != nil {
		h.writeProblem(w, r, getOperation, err)
		return
	}

	t, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeProblem(w, r, getOperation, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toBody(t))
}

// TenantsUpdate implements PATCH /admin/tenants/{tenantId}
func (h *Handler) TenantsUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := tenantIDParam(r)
	if err != nil {
		h.writeProblem(w, r, updateOperation, err)
		return
	}

	var body updateRequest
	if err := httpjson.Decode(r, &body); err != nil {
		h.writeProblem(w, r, updateOperation, problems.BadRequest(err, nil))
		return
	}

	input := service.UpdateInput{DisplayName: body.DisplayName}
	if body.Status != nil {
		status := service.Status(*body.Status)
		input.Status = &status
	}

	updated, err := h.svc.Update(r.Context(), id, input)
	if err != nil {
		h.writeProblem(w, r, updateOperation, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toBody(updated))
}

// TenantsAddDomain implements POST /admin/tenants/{tenantId}/domains
func (h *Handler) TenantsAddDomain(w http.ResponseWriter, r *http.Request) {
	id, err := tenantIDParam(r)
	if err != nil {
		h.writeProblem(w, r, addDomainOperation, err)
		return
	}

	var body domainRequest
	if err := httpjson.Decode(r, &body); err != nil {
		h.writeProblem(w, r, addDomainOperation, problems.BadRequest(err, nil))
		return
	}

	t, err := h.svc.AddDomain(r.Context(), id, body.Domain)
	if err != nil {
		h.writeProblem(w, r, addDomainOperation, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toBody(t))
}

// TenantsRemoveDomain implements DELETE /admin/tenants/{tenantId}/domains/{domain}
func (h *Handler) TenantsRemoveDomain(w http.ResponseWriter, r *http.Request) {
	id, err := tenantIDParam(r)
	if err != nil {
		h.writeProblem(w, r, removeDomainOperation, err)
		return
	}

	t, err := h.svc.RemoveDomain(r.Context(), id, chi.URLParam(r, "domain"))
	if err != nil {
		h.writeProblem(w, r, removeDomainOperation, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toBody(t))
}

// CurrentTenant implements GET /tenant/info and reports the tenant resolved from the host.
func (h *Handler) CurrentTenant(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.FromContext(r.Context())
	if !ok {
		// Mounted behind the tenant guard; reaching here without a tenant is a wiring bug.
		h.writeProblem(w, r, getOperation, errors.New("tenant missing from context"))
		return
	}
	httpjson.Write(w, http.StatusOK, currentTenantBody{TenantID: t.ID.String(), Slug: t.Slug, Domain: t.Domain})
}

func tenantIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "tenantId"))
	if err != nil {
		return uuid.Nil, problems.BadRequest(err, map[string][]string{"tenantId": {"must be a UUID"}})
	}
	return id, nil
}

func buildListOptions(r *http.Request) (service.ListOptions, error) {
	q := r.URL.Query()
	opts := service.ListOptions{Page: 1, PageSize: 20}
	fields := map[string][]string{}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			fields["page"] = append(fields["page"], "must be a positive integer")
		}
		opts.Page = n
	}
	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			fields["pageSize"] = append(fields["pageSize"], "must be a positive integer")
		}
		opts.PageSize = n
	}
	if v := q.Get("status"); v != "" {
		status, err := service.ParseStatus(v)
		if err != nil {
			fields["status"] = append(fields["status"], err.Error())
		}
		opts.Status = &status
	}

	if len(fields) > 0 {
		return service.ListOptions{}, problems.BadRequest(errors.New("invalid query parameters"), fields)
	}
	return opts, nil
}

func (h *Handler) writeProblem(w http.ResponseWriter, r *http.Request, op operation, err error) {
	problems.Write(w, h.problemForError(r.Context(), err, op))
}

func (h *Handler) problemForError(ctx context.Context, err error, op operation) problems.Details {
	var (
		status      int
		title       string
		detail      string
		problemType string
		fields      map[string][]string
	)

	var validationErr *service.ValidationError
	var reqErr *problems.RequestError

	switch {
	case errors.As(err, &reqErr):
		status, title, detail, problemType, fields = http.StatusBadRequest, "Invalid request", reqErr.Error(), problems.TypeValidation, reqErr.Fields
	case errors.As(err, &validationErr):
		status, title, detail, problemType, fields = http.StatusBadRequest, "Validation failed", "one or more fields are invalid", problems.TypeValidation, validationErr.Fields
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrDomainNotFound):
		status, title, detail, problemType = http.StatusNotFound, "Not found", err.Error(), problems.TypeNotFound
	case errors.Is(err, service.ErrConflictSlug), errors.Is(err, service.ErrConflictDomain):
		status, title, detail, problemType = http.StatusConflict, "Conflict", err.Error(), problems.TypeConflict
	default:
		status, title, detail, problemType = http.StatusInternalServerError, "Internal server error", "an unexpected error occurred", problems.TypeInternal
	}

	logger := h.loggerFrom(ctx)
	fieldsForLog := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", status),
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("tenants operation failed", append(fieldsForLog, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("tenants resource not found", append(fieldsForLog, zap.Error(err))...)
	default:
		logger.Warn("tenants request rejected", append(fieldsForLog, zap.Error(err))...)
	}

	return problems.New(title, detail, problemType, status, fields)
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}

func toBody(t service.Tenant) tenantBody {
	domains := t.Domains
	if domains == nil {
		domains = []string{}
	}
	return tenantBody{
		TenantID:    t.ID.String(),
		Slug:        t.Slug,
		DisplayName: t.DisplayName,
		Status:      string(t.Status),
		Domains:     domains,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
