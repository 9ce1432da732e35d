package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/palmyra-tenancy/domains/roles/be/repo"
	"github.com/zenGate-Global/palmyra-tenancy/domains/roles/be/service"
	platformauth "github.com/zenGate-Global/palmyra-tenancy/platform/go/auth"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/permission"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/tenant"
)

func do(t *testing.T, r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestAdminRolesAssignListRevoke(t *testing.T) {
	h := New(service.New(repo.NewMemoryRepository(), permission.NewScopes()), zaptest.NewLogger(t))
	r := chi.NewRouter()
	h.MountAdmin(r)

	resp := do(t, r, http.MethodPost, "/roles", `{"userId":"root","role":"superadmin"}`)
	require.Equal(t, http.StatusCreated, resp.Code)
	var a assignmentBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &a))
	require.Nil(t, a.Scope)

	resp = do(t, r, http.MethodPost, "/roles", `{"userId":"root","role":"superadmin","scope":"  "}`)
	require.Equal(t, http.StatusConflict, resp.Code)

	resp = do(t, r, http.MethodPost, "/roles", `{"userId":"ed","role":"editor","scope":"team-1"}`)
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = do(t, r, http.MethodGet, "/roles?userId=ed&scope=team-1", "")
	require.Equal(t, http.StatusOK, resp.Code)
	var body rolesBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, []string{"editor"}, body.Roles)
	require.Equal(t, "team-1", body.Scope)

	resp = do(t, r, http.MethodGet, "/roles?userId=ed", "")
	require.Equal(t, http.StatusOK, resp.Code)
	body = rolesBody{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Empty(t, body.Roles)
	require.Equal(t, "global", body.Scope)

	resp = do(t, r, http.MethodDelete, "/roles", `{"userId":"ed","role":"editor","scope":"team-1"}`)
	require.Equal(t, http.StatusNoContent, resp.Code)
	resp = do(t, r, http.MethodDelete, "/roles", `{"userId":"ed","role":"editor","scope":"team-1"}`)
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp = do(t, r, http.MethodGet, "/roles", "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestRolesMeUsesTenantScope(t *testing.T) {
	svc := service.New(repo.NewMemoryRepository(), permission.NewScopes())
	acme := tenant.Tenant{ID: uuid.New(), Slug: "acme"}
	_, err := svc.AssignIn(t.Context(), "user-1", "editor", permission.ScopeID(acme.ID.String()).Ptr())
	require.NoError(t, err)
	_, err = svc.AssignIn(t.Context(), "user-1", "auditor", nil)
	require.NoError(t, err)

	h := New(svc, zaptest.NewLogger(t))
	r := chi.NewRouter()
	h.MountTenant(r)

	req := httptest.NewRequest(http.MethodGet, "/roles/me", nil)
	ctx := platformauth.WithUser(req.Context(), &platformauth.UserCredentials{ID: "user-1", Type: platformauth.PrincipalTypeUser})
	ctx = tenant.WithTenant(ctx, acme)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req.WithContext(ctx))

	require.Equal(t, http.StatusOK, resp.Code)
	var body rolesBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, []string{"editor"}, body.Roles)
	require.Equal(t, acme.ID.String(), body.Scope)
}
