package main

import (
	"context"
	"net/http"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	mediahandler "github.com/zenGate-Global/palmyra-tenancy/domains/media/be/handler"
	mediaservice "github.com/zenGate-Global/palmyra-tenancy/domains/media/be/service"
	membershipshandler "github.com/zenGate-Global/palmyra-tenancy/domains/memberships/be/handler"
	membershipsservice "github.com/zenGate-Global/palmyra-tenancy/domains/memberships/be/service"
	roleshandler "github.com/zenGate-Global/palmyra-tenancy/domains/roles/be/handler"
	rolesservice "github.com/zenGate-Global/palmyra-tenancy/domains/roles/be/service"
	tenantshandler "github.com/zenGate-Global/palmyra-tenancy/domains/tenants/be/handler"
	tenantsservice "github.com/zenGate-Global/palmyra-tenancy/domains/tenants/be/service"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/access"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/httpjson"
	platformlogging "github.com/zenGate-Global/palmyra-tenancy/platform/go/logging"
	platformmiddleware "github.com/zenGate-Global/palmyra-tenancy/platform/go/middleware"
	tenantmiddleware "github.com/zenGate-Global/palmyra-tenancy/platform/go/tenant/middleware"
)

// routerDeps is everything newRouter needs; main builds it from config, tests from memory repos.
type routerDeps struct {
	Logger *zap.Logger

	Tenants     *tenantsservice.Service
	Memberships *membershipsservice.Service
	Roles       *rolesservice.Service
	Media       *mediaservice.Service

	// Auth attaches the principal; requests without a token pass through anonymous.
	Auth func(http.Handler) http.Handler
	// Spec is the contract enforced on the JSON route groups.
	Spec *openapi3.T
	// Ready reports whether backing services are reachable.
	Ready func(ctx context.Context) error

	CentralDomains []string
	TenantCacheTTL time.Duration
	TenantCacheMax int
	RequestTimeout time.Duration
	CORSOrigins    []string
	MaxUploadBytes int64
}

func newRouter(d routerDeps) (chi.Router, error) {
	logger := d.Logger

	tenantsHTTP := tenantshandler.New(d.Tenants, logger)
	membershipsHTTP := membershipshandler.New(d.Memberships, logger)
	rolesHTTP := roleshandler.New(d.Roles, logger)
	mediaHTTP := mediahandler.New(d.Media, d.MaxUploadBytes, logger)

	caps := access.Compose(d.Roles, d.Memberships)
	validator := platformmiddleware.SpecValidator(d.Spec)

	root := chi.NewRouter()
	root.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		chimw.Timeout(d.RequestTimeout),
		platformmiddleware.CORS(d.CORSOrigins),
		platformlogging.RequestLogger(logger),
	)

	root.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	root.Get("/readyz", readyHandler(d.Ready, logger))
	if err := registerDocsRoutes(root, d.Spec); err != nil {
		return nil, err
	}

	root.Route("/api/v1", func(api chi.Router) {
		// Tenant resolution runs first so every later stage sees the same tenant.
		api.Use(tenantmiddleware.ResolveFromHost(d.Tenants, tenantmiddleware.Config{
			CentralDomains:  d.CentralDomains,
			CacheTTL:        d.TenantCacheTTL,
			CacheMaxEntries: d.TenantCacheMax,
			Logger:          logger,
		}))
		api.Use(d.Auth)
		api.Use(platformmiddleware.RequestTrace)

		api.Route("/admin", func(r chi.Router) {
			r.Use(access.RequireSuperadmin(logger))
			r.Group(func(r chi.Router) {
				r.Use(validator)
				tenantsHTTP.MountAdmin(r)
				membershipsHTTP.MountAdmin(r)
				rolesHTTP.MountAdmin(r)
			})
			mediaHTTP.MountAdmin(r)
		})

		api.Route("/tenant", func(r chi.Router) {
			r.With(access.RequireTenant(logger)).Get("/info", tenantsHTTP.CurrentTenant)
			r.Group(func(r chi.Router) {
				r.Use(access.RequireTenantMember(caps, logger))
				r.Group(func(r chi.Router) {
					r.Use(validator)
					membershipsHTTP.MountTenant(r)
					rolesHTTP.MountTenant(r)
				})
				mediaHTTP.MountTenant(r)
			})
		})
	})

	return root, nil
}

type readyBody struct {
	Status string `json:"status"`
}

func readyHandler(check func(ctx context.Context) error, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				platformlogging.FromRequest(r, logger).Warn("readiness check failed", zap.Error(err))
				httpjson.Write(w, http.StatusServiceUnavailable, readyBody{Status: "unavailable"})
				return
			}
		}
		httpjson.Write(w, http.StatusOK, readyBody{Status: "ok"})
	}
}
