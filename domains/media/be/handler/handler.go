package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-tenancy/domains/media/be/service"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/httpjson"
	platformlogging "github.com/zenGate-Global/palmyra-tenancy/platform/go/logging"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/problems"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/tenant"
)

type operation string

const (
	uploadOperation        operation = "mediaUpload"
	uploadCentralOperation operation = "mediaUploadCentral"
	downloadOperation      operation = "mediaDownload"
	deleteOperation        operation = "mediaDelete"
)

// formMemory is how much of a multipart form is kept in memory before spilling to disk.
const formMemory = 8 << 20

// Service is the subset of the media service used over HTTP.
type Service interface {
	Upload(ctx context.Context, in service.UploadInput) (service.Asset, error)
	Open(ctx context.Context, tenantID, id uuid.UUID) (service.Asset, io.ReadCloser, error)
	OpenAny(ctx context.Context, id uuid.UUID) (service.Asset, io.ReadCloser, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// Handler serves multipart uploads and streams stored media.
type Handler struct {
	svc       Service
	logger    *zap.Logger
	maxUpload int64
}

// New constructs a Handler. maxUpload bounds the request body; <= 0 means 32 MiB.
func New(svc Service, maxUpload int64, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("media service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	return &Handler{svc: svc, logger: logger, maxUpload: maxUpload}
}

// MountTenant registers routes served behind the tenant membership guard.
func (h *Handler) MountTenant(r chi.Router) {
	r.Post("/media", h.MediaUpload)
	r.Get("/media/{mediaId}", h.MediaDownload)
	r.Delete("/media/{mediaId}", h.MediaDelete)
}

// MountAdmin registers central media routes on a superadmin-only router.
func (h *Handler) MountAdmin(r chi.Router) {
	r.Post("/media", h.MediaUploadCentral)
	r.Get("/media/{mediaId}", h.MediaDownloadAny)
}

type assetBody struct {
	MediaID     string    `json:"mediaId"`
	TenantID    *string   `json:"tenantId"`
	ModelType   string    `json:"modelType,omitempty"`
	ModelID     string    `json:"modelId,omitempty"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
}

// MediaUpload implements POST /tenant/media
func (h *Handler) MediaUpload(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.FromContext(r.Context())
	if !ok {
		h.writeProblem(w, r, uploadOperation, errors.New("tenant missing from context"))
		return
	}
	h.upload(w, r, uploadOperation, &t.ID, "/api/v1/tenant/media/%s")
}

// MediaUploadCentral implements POST /admin/media
func (h *Handler) MediaUploadCentral(w http.ResponseWriter, r *http.Request) {
	h.upload(w, r, uploadCentralOperation, nil, "/api/v1/admin/media/%s")
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request, op operation, tenantID *uuid.UUID, location string) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		h.writeProblem(w, r, op, uploadError(err))
		return
	}
	defer r.MultipartForm.RemoveAll() // nolint:errcheck

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeProblem(w, r, op, problems.BadRequest(err, map[string][]string{"file": {"a file part is required"}}))
		return
	}
	defer file.Close()

	in := service.UploadInput{
		TenantID:    tenantID,
		ModelType:   r.FormValue("modelType"),
		ModelID:     r.FormValue("modelId"),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	}
	a, err := h.svc.Upload(r.Context(), in)
	if err != nil {
		h.writeProblem(w, r, op, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf(location, a.ID))
	httpjson.Write(w, http.StatusCreated, toBody(a))
}

// MediaDownload implements GET /tenant/media/{mediaId}
func (h *Handler) MediaDownload(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.FromContext(r.Context())
	if !ok {
		h.writeProblem(w, r, downloadOperation, errors.New("tenant missing from context"))
		return
	}
	id, err := mediaIDParam(r)
	if err != nil {
		h.writeProblem(w, r, downloadOperation, err)
		return
	}

	a, rc, err := h.svc.Open(r.Context(), t.ID, id)
	if err != nil {
		h.writeProblem(w, r, downloadOperation, err)
		return
	}
	h.stream(w, r, a, rc)
}

// MediaDownloadAny implements GET /admin/media/{mediaId}
func (h *Handler) MediaDownloadAny(w http.ResponseWriter, r *http.Request) {
	id, err := mediaIDParam(r)
	if err != nil {
		h.writeProblem(w, r, downloadOperation, err)
		return
	}

	a, rc, err := h.svc.OpenAny(r.Context(), id)
	if err != nil {
		h.writeProblem(w, r, downloadOperation, err)
		return
	}
	h.stream(w, r, a, rc)
}

// MediaDelete implements DELETE /tenant/media/{mediaId}
func (h *Handler) MediaDelete(w http.ResponseWriter, r *http.Request) {
	t, ok := tenant.FromContext(r.Context())
	if !ok {
		h.writeProblem(w, r, deleteOperation, errors.New("tenant missing from context"))
		return
	}
	id, err := mediaIDParam(r)
	if err != nil {
		h.writeProblem(w, r, deleteOperation, err)
		return
	}

	if err := h.svc.Delete(r.Context(), t.ID, id); err != nil {
		h.writeProblem(w, r, deleteOperation, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request, a service.Asset, rc io.ReadCloser) {
	defer rc.Close()

	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Length", strconv.FormatInt(a.SizeBytes, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": a.FileName}))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, rc); err != nil {
		h.loggerFrom(r.Context()).Warn("media stream interrupted",
			zap.String("mediaId", a.ID.String()),
			zap.Error(err),
		)
	}
}

func mediaIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "mediaId"))
	if err != nil {
		return uuid.Nil, problems.BadRequest(err, map[string][]string{"mediaId": {"must be a UUID"}})
	}
	return id, nil
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return service.ErrTooLarge
	}
	return problems.BadRequest(err, map[string][]string{"file": {"expected a multipart/form-data body"}})
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
	case errors.Is(err, service.ErrTooLarge):
		status, title, detail, problemType = http.StatusRequestEntityTooLarge, "Payload too large", err.Error(), problems.TypeValidation
	case errors.Is(err, service.ErrNotFound):
		status, title, detail, problemType = http.StatusNotFound, "Not found", err.Error(), problems.TypeNotFound
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
		logger.Error("media operation failed", fieldsForLog...)
	case status == http.StatusNotFound:
		logger.Info("media resource not found", fieldsForLog...)
	default:
		logger.Warn("media request rejected", fieldsForLog...)
	}

	return problems.New(title, detail, problemType, status, fields)
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}

func toBody(a service.Asset) assetBody {
	out := assetBody{
		MediaID:     a.ID.String(),
		ModelType:   a.ModelType,
		ModelID:     a.ModelID,
		FileName:    a.FileName,
		ContentType: a.ContentType,
		SizeBytes:   a.SizeBytes,
		CreatedAt:   a.CreatedAt,
	}
	if a.TenantID != nil {
		s := a.TenantID.String()
		out.TenantID = &s
	}
	return out
}
