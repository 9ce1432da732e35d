package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-tenancy/domains/roles/be/service"
	platformauth "github.com/zenGate-Global/palmyra-tenancy/platform/go/auth"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/httpjson"
	platformlogging "github.com/zenGate-Global/palmyra-tenancy/platform/go/logging"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/permission"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/problems"
)

type operation string

const (
	meOperation     operation = "rolesMe"
	listOperation   operation = "rolesList"
	assignOperation operation = "rolesAssign"
	revokeOperation operation = "rolesRevoke"
)

// Service is the subset of the roles service used over HTTP.
type Service interface {
	AssignIn(ctx context.Context, userID, role string, scope *permission.ScopeID) (service.Assignment, error)
	RevokeIn(ctx context.Context, userID, role string, scope *permission.ScopeID) error
	RolesIn(ctx context.Context, userID string, scope *permission.ScopeID) ([]string, error)
	RolesOf(ctx context.Context, userID string) ([]string, error)
	CurrentScope(ctx context.Context) *permission.ScopeID
}

// Handler exposes role assignment management.
type Handler struct {
	svc    Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("roles service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

// MountAdmin registers assignment management on a superadmin-only router.
func (h *Handler) MountAdmin(r chi.Router) {
	r.Get("/roles", h.RolesList)
	r.Post("/roles", h.RolesAssign)
	r.Delete("/roles", h.RolesRevoke)
}

// MountTenant registers routes served behind the tenant membership guard.
func (h *Handler) MountTenant(r chi.Router) {
	r.Get("/roles/me", h.RolesMe)
}

type assignmentRequest struct {
	UserID string  `json:"userId"`
	Role   string  `json:"role"`
	Scope  *string `json:"scope,omitempty"`
}

type rolesBody struct {
	UserID string   `json:"userId"`
	Scope  string   `json:"scope"`
	Roles  []string `json:"roles"`
}

type assignmentBody struct {
	AssignmentID string  `json:"assignmentId"`
	UserID       string  `json:"userId"`
	Role         string  `json:"role"`
	Scope        *string `json:"scope"`
}

// RolesMe implements GET /tenant/roles/me and lists the caller's roles in the tenant's scope.
func (h *Handler) RolesMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, ok := platformauth.UserFromContext(ctx)
	if !ok {
		h.writeProblem(w, r, meOperation, errors.New("principal missing from context"))
		return
	}

	roles, err := h.svc.RolesOf(ctx, user.ID)
	if err != nil {
		h.writeProblem(w, r, meOperation, err)
		return
	}
	httpjson.Write(w, http.StatusOK, rolesBody{UserID: user.ID, Scope: permission.String(h.svc.CurrentScope(ctx)), Roles: roles})
}

// RolesList implements GET /admin/roles?userId=&scope=
func (h *Handler) RolesList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("userId")
	if userID == "" {
		h.writeProblem(w, r, listOperation, problems.BadRequest(errors.New("missing userId"), map[string][]string{"userId": {"userId is required"}}))
		return
	}
	scope := optionalScope(q.Get("scope"))

	roles, err := h.svc.RolesIn(r.Context(), userID, scope)
	if err != nil {
		h.writeProblem(w, r, listOperation, err)
		return
	}
	httpjson.Write(w, http.StatusOK, rolesBody{UserID: userID, Scope: permission.String(scope), Roles: roles})
}

// RolesAssign implements POST /admin/roles
func (h *Handler) RolesAssign(w http.ResponseWriter, r *http.Request) {
	var body assignmentRequest
	if err := httpjson.Decode(r, &body); err != nil {
		h.writeProblem(w, r, assignOperation, problems.BadRequest(err, nil))
		return
	}

	a, err := h.svc.AssignIn(r.Context(), body.UserID, body.Role, scopeOf(body.Scope))
	if err != nil {
		h.writeProblem(w, r, assignOperation, err)
		return
	}

	out := assignmentBody{AssignmentID: a.ID.String(), UserID: a.UserID, Role: a.Role}
	if a.Scope != nil {
		s := string(*a.Scope)
		out.Scope = &s
	}
	httpjson.Write(w, http.StatusCreated, out)
}

// RolesRevoke implements DELETE /admin/roles
func (h *Handler) RolesRevoke(w http.ResponseWriter, r *http.Request) {
	var body assignmentRequest
	if err := httpjson.Decode(r, &body); err != nil {
		h.writeProblem(w, r, revokeOperation, problems.BadRequest(err, nil))
		return
	}

	if err := h.svc.RevokeIn(r.Context(), body.UserID, body.Role, scopeOf(body.Scope)); err != nil {
		h.writeProblem(w, r, revokeOperation, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func scopeOf(v *string) *permission.ScopeID {
	if v == nil {
		return nil
	}
	return optionalScope(*v)
}

// optionalScope treats a blank value as the global scope.
func optionalScope(v string) *permission.ScopeID {
	scope, _ := permission.Normalize(v)
	return scope
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
	case errors.Is(err, service.ErrNotFound):
		status, title, detail, problemType = http.StatusNotFound, "Not found", err.Error(), problems.TypeNotFound
	case errors.Is(err, service.ErrAlreadyAssigned):
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
		logger.Error("roles operation failed", fieldsForLog...)
	case status == http.StatusNotFound:
		logger.Info("roles resource not found", fieldsForLog...)
	default:
		logger.Warn("roles request rejected", fieldsForLog...)
	}

	return problems.New(title, detail, problemType, status, fields)
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}
