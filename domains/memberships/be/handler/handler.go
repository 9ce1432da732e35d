package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-tenancy/domains/memberships/be/service"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/access"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/httpjson"
	platformlogging "github.com/zenGate-Global/palmyra-tenancy/platform/go/logging"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/problems"
)

type operation string

const (
	meOperation        operation = "membershipsMe"
	listOperation      operation = "membershipsList"
	addOperation       operation = "membershipsAdd"
	setStatusOperation operation = "membershipsSetStatus"
)

// Service is the subset of the memberships service used over HTTP.
type Service interface {
	Add(ctx context.Context, tenantID uuid.UUID, userID string, status service.Status) (service.Membership, error)
	SetStatus(ctx context.Context, tenantID, id uuid.UUID, status service.Status) (service.Membership, error)
	ListForTenant(ctx context.Context, tenantID uuid.UUID) ([]service.Membership, error)
}

// Handler exposes membership management and the caller's own membership.
type Handler struct {
	svc    Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("memberships service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// MountAdmin registers membership management on a superadmin-only router.
func (h *Handler) MountAdmin(r chi.Router) {
	r.Get("/tenants/{tenantId}/memberships", h.MembershipsList)
	r.Post("/tenants/{tenantId}/memberships", h.MembershipsAdd)
	r.Patch("/tenants/{tenantId}/memberships/{membershipId}", h.MembershipsSetStatus)
}

// MountTenant registers routes served behind the tenant membership guard.
func (h *Handler) MountTenant(r chi.Router) {
	r.Get("/membership/me", h.MembershipsMe)
}

type membershipBody struct {
	MembershipID string    `json:"membershipId"`
	TenantID     string    `json:"tenantId"`
	UserID       string    `json:"userId"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type meBody struct {
	Bypass     bool            `json:"bypass"`
	Membership *membershipBody `json:"membership,omitempty"`
}

type listBody struct {
	Items []membershipBody `json:"items"`
}

type addRequest struct {
	UserID string  `json:"userId"`
	Status *string `json:"status,omitempty"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// MembershipsMe implements GET /tenant/membership/me
func (h *Handler) MembershipsMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if access.BypassedFromContext(ctx) {
		httpjson.Write(w, http.StatusOK, meBody{Bypass: true})
		return
	}

	m, ok := access.MembershipFromContext(ctx)
	if !ok {
		h.writeProblem(w, r, meOperation, errors.New("membership missing from context"))
		return
	}
	body := membershipBody{
		MembershipID: m.ID.String(),
		TenantID:     m.TenantID.String(),
		UserID:       m.UserID,
		Status:       m.Status,
		CreatedAt:    m.CreatedAt,
	}
	httpjson.Write(w, http.StatusOK, meBody{Membership: &body})
}

// MembershipsList implements GET /admin/tenants/{tenantId}/memberships
func (h *Handler) MembershipsList(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuidParam(r, "tenantId")
	if err != nil {
		h.writeProblem(w, r, listOperation, err)
		return
	}

	items, err := h.svc.ListForTenant(r.Context(), tenantID)
	if err != nil {
		h.writeProblem(w, r, listOperation, err)
		return
	}

	out := listBody{Items: make([]membershipBody, 0, len(items))}
	for _, m := range items {
		out.Items = append(out.Items, toBody(m))
	}
	httpjson.Write(w, http.StatusOK, out)
}

// MembershipsAdd implements POST /admin/tenants/{tenantId}/memberships
func (h *Handler) MembershipsAdd(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuidParam(r, "tenantId")
	if err != nil {
		h.writeProblem(w, r, addOperation, err)
		return
	}

	var body addRequest
	if err := httpjson.Decode(r, &body); err != nil {
		h.writeProblem(w, r, addOperation, problems.BadRequest(err, nil))
		return
	}

	var status service.Status
	if body.Status != nil {
		status = service.Status(*body.Status)
	}

	m, err := h.svc.Add(r.Context(), tenantID, body.UserID, status)
	if err != nil {
		h.writeProblem(w, r, addOperation, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/admin/tenants/%s/memberships/%s", tenantID, m.ID))
	httpjson.Write(w, http.StatusCreated, toBody(m))
}

// MembershipsSetStatus implements PATCH /admin/tenants/{tenantId}/memberships/{membershipId}
func (h *Handler) MembershipsSetStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, err := uuidParam(r, "tenantId")
	if err != nil {
		h.writeProblem(w, r, setStatusOperation, err)
		return
	}
	id, err := uuidParam(r, "membershipId")
	if err != nil {
		h.writeProblem(w, r, setStatusOperation, err)
		return
	}

	var body statusRequest
	if err := httpjson.Decode(r, &body); err != nil {
		h.writeProblem(w, r, setStatusOperation, problems.BadRequest(err, nil))
		return
	}

	m, err := h.svc.SetStatus(r.Context(), tenantID, id, service.Status(body.Status))
	if err != nil {
		h.writeProblem(w, r, setStatusOperation, err)
		return
	}
	httpjson.Write(w, http.StatusOK, toBody(m))
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, problems.BadRequest(err, map[string][]string{name: {"must be a UUID"}})
	}
	return id, nil
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
	case errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrTenantNotFound):
		status, title, detail, problemType = http.StatusNotFound, "Not found", err.Error(), problems.TypeNotFound
	case errors.Is(err, service.ErrAlreadyMember):
		status, title, detail, problemType = http.StatusConflict, "Conflict", err.Error(), problems.TypeConflict
	default:
		status, title, detail, problemType = http.StatusInternalServerError, "Internal server error", "an unexpected error occurred", problems.TypeInternal
	}

	logger := h.loggerFrom(ctx)
	fieldsForLog := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", status),
		zap.Error(err),
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("memberships operation failed", fieldsForLog...)
	case status == http.StatusNotFound:
		logger.Info("memberships resource not found", fieldsForLog...)
	default:
		logger.Warn("memberships request rejected", fieldsForLog...)
	}

	return problems.New(title, detail, problemType, status, fields)
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}

func toBody(m service.Membership) membershipBody {
	return membershipBody{
		MembershipID: m.ID.String(),
		TenantID:     m.TenantID.String(),
		UserID:       m.UserID,
		Status:       string(m.Status),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
