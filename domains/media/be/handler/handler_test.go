package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/zenGate-Global/palmyra-tenancy/domains/media/be/repo"
	"github.com/zenGate-Global/palmyra-tenancy/domains/media/be/service"
	platformauth "github.com/zenGate-Global/palmyra-tenancy/platform/go/auth"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/media"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/storage"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/tenant"
)

type fixture struct {
	tenantRouter chi.Router
	adminRouter  chi.Router
}

func newFixture(t *testing.T, maxUpload int64) fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	svc := service.New(repo.NewMemoryRepository(), storage.NewLocalStore(t.TempDir()), media.TenantAwarePaths{}, 0, logger)
	h := New(svc, maxUpload, logger)

	tr := chi.NewRouter()
	h.MountTenant(tr)
	ar := chi.NewRouter()
	h.MountAdmin(ar)
	return fixture{tenantRouter: tr, adminRouter: ar}
}

func multipartBody(t *testing.T, fields map[string]string, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func serve(r http.Handler, req *http.Request, tn *tenant.Tenant) *httptest.ResponseRecorder {
	ctx := platformauth.WithUser(req.Context(), &platformauth.UserCredentials{ID: "user-1", Type: platformauth.PrincipalTypeUser})
	if tn != nil {
		ctx = tenant.WithTenant(ctx, *tn)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req.WithContext(ctx))
	return resp
}

func TestTenantUploadDownloadDelete(t *testing.T) {
	f := newFixture(t, 0)
	acme := tenant.Tenant{ID: uuid.New(), Slug: "acme"}
	beta := tenant.Tenant{ID: uuid.New(), Slug: "beta"}

	body, contentType := multipartBody(t, nil, "notes.txt", "hello tenant")
	req := httptest.NewRequest(http.MethodPost, "/media", body)
	req.Header.Set("Content-Type", contentType)
	resp := serve(f.tenantRouter, req, &acme)
	require.Equal(t, http.StatusCreated, resp.Code)

	var created assetBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	require.NotNil(t, created.TenantID)
	require.Equal(t, acme.ID.String(), *created.TenantID)
	require.Equal(t, "/api/v1/tenant/media/"+created.MediaID, resp.Header().Get("Location"))

	resp = serve(f.tenantRouter, httptest.NewRequest(http.MethodGet, "/media/"+created.MediaID, nil), &acme)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "hello tenant", resp.Body.String())
	require.Contains(t, resp.Header().Get("Content-Disposition"), "notes.txt")

	resp = serve(f.tenantRouter, httptest.NewRequest(http.MethodGet, "/media/"+created.MediaID, nil), &beta)
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp = serve(f.tenantRouter, httptest.NewRequest(http.MethodDelete, "/media/"+created.MediaID, nil), &acme)
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = serve(f.tenantRouter, httptest.NewRequest(http.MethodGet, "/media/"+created.MediaID, nil), &acme)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCentralUploadRequiresModel(t *testing.T) {
	f := newFixture(t, 0)

	body, contentType := multipartBody(t, nil, "logo.png", "x")
	req := httptest.NewRequest(http.MethodPost, "/media", body)
	req.Header.Set("Content-Type", contentType)
	resp := serve(f.adminRouter, req, nil)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	body, contentType = multipartBody(t, map[string]string{"modelType": "Plan", "modelId": "7"}, "logo.png", "x")
	req = httptest.NewRequest(http.MethodPost, "/media", body)
	req.Header.Set("Content-Type", contentType)
	resp = serve(f.adminRouter, req, nil)
	require.Equal(t, http.StatusCreated, resp.Code)

	var created assetBody
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	require.Nil(t, created.TenantID)

	resp = serve(f.adminRouter, httptest.NewRequest(http.MethodGet, "/media/"+created.MediaID, nil), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "x", resp.Body.String())
}

func TestUploadRejectsMissingFileAndOversize(t *testing.T) {
	f := newFixture(t, 1024)
	acme := tenant.Tenant{ID: uuid.New(), Slug: "acme"}

	body, contentType := multipartBody(t, map[string]string{"modelType": "x"}, "", "")
	req := httptest.NewRequest(http.MethodPost, "/media", body)
	req.Header.Set("Content-Type", contentType)
	resp := serve(f.tenantRouter, req, &acme)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	body, contentType = multipartBody(t, nil, "big.bin", string(bytes.Repeat([]byte("a"), 4096)))
	req = httptest.NewRequest(http.MethodPost, "/media", body)
	req.Header.Set("Content-Type", contentType)
	resp = serve(f.tenantRouter, req, &acme)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.Code)
}
