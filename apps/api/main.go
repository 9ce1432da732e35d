package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/zenGate-Global/palmyra-tenancy/contracts"
	mediarepo "github.com/zenGate-Global/palmyra-tenancy/domains/media/be/repo"
	mediaservice "github.com/zenGate-Global/palmyra-tenancy/domains/media/be/service"
	membershipsrepo "github.com/zenGate-Global/palmyra-tenancy/domains/memberships/be/repo"
	membershipsservice "github.com/zenGate-Global/palmyra-tenancy/domains/memberships/be/service"
	rolesrepo "github.com/zenGate-Global/palmyra-tenancy/domains/roles/be/repo"
	rolesservice "github.com/zenGate-Global/palmyra-tenancy/domains/roles/be/service"
	tenantsrepo "github.com/zenGate-Global/palmyra-tenancy/domains/tenants/be/repo"
	tenantsservice "github.com/zenGate-Global/palmyra-tenancy/domains/tenants/be/service"
	platformlogging "github.com/zenGate-Global/palmyra-tenancy/platform/go/logging"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/media"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/permission"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/persistence"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/storage"
	tenantmiddleware "github.com/zenGate-Global/palmyra-tenancy/platform/go/tenant/middleware"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	Database        persistence.PoolConfig
	AuthProvider    string        `env:"AUTH_PROVIDER" envDefault:"firebase"` // firebase | dev
	CentralDomains  string        `env:"CENTRAL_DOMAINS"`                      // comma separated
	TenantCacheTTL  time.Duration `env:"TENANT_CACHE_TTL" envDefault:"1m"`
	TenantCacheSize int           `env:"TENANT_CACHE_MAX_ENTRIES" envDefault:"4096"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	Storage         storage.Config
	MaxUploadBytes  int64         `env:"MAX_UPLOAD_BYTES" envDefault:"33554432"`
}

func main() {
	ctx := context.Background()

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}
	cfg.Database.ApplicationName = "palmyra-api"

	logger, err := platformlogging.NewLogger(platformlogging.Config{
		Component: "api-server",
		Level:     cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	pool, err := persistence.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("init postgres pool", zap.Error(err))
	}
	defer persistence.ClosePool(pool)

	tenantStore, err := persistence.NewTenantStore(pool, cfg.Database.Schema)
	if err != nil {
		logger.Fatal("init tenant store", zap.Error(err))
	}
	membershipStore, err := persistence.NewMembershipStore(pool, cfg.Database.Schema)
	if err != nil {
		logger.Fatal("init membership store", zap.Error(err))
	}
	roleStore, err := persistence.NewRoleStore(pool, cfg.Database.Schema)
	if err != nil {
		logger.Fatal("init role store", zap.Error(err))
	}
	mediaStore, err := persistence.NewMediaStore(pool, cfg.Database.Schema)
	if err != nil {
		logger.Fatal("init media store", zap.Error(err))
	}

	objects, closeObjects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logger.Fatal("init object storage", zap.String("backend", cfg.Storage.Backend), zap.Error(err))
	}
	defer closeObjects()

	spec, err := contracts.Load(ctx, docName)
	if err != nil {
		logger.Fatal("load openapi contract", zap.Error(err))
	}

	authMiddleware, err := buildAuthMiddleware(ctx, cfg.AuthProvider, logger)
	if err != nil {
		logger.Fatal("init auth", zap.Error(err))
	}

	router, err := newRouter(routerDeps{
		Logger:         logger,
		Tenants:        tenantsservice.New(tenantsrepo.NewPostgresRepository(tenantStore)),
		Memberships:    membershipsservice.New(membershipsrepo.NewPostgresRepository(membershipStore)),
		Roles:          rolesservice.New(rolesrepo.NewPostgresRepository(roleStore), permission.NewScopes()),
		Media:          mediaservice.New(mediarepo.NewPostgresRepository(mediaStore), objects, media.TenantAwarePaths{}, cfg.MaxUploadBytes, logger),
		Auth:           authMiddleware,
		Spec:           spec,
		Ready:          readiness(pool, objects),
		CentralDomains: tenantmiddleware.ParseDomains(cfg.CentralDomains),
		TenantCacheTTL: cfg.TenantCacheTTL,
		TenantCacheMax: cfg.TenantCacheSize,
		RequestTimeout: cfg.RequestTimeout,
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
	})
	if err != nil {
		logger.Fatal("build router", zap.Error(err))
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	go func() {
		logger.Info("starting api server",
			zap.String("port", cfg.Port),
			zap.Strings("centralDomains", tenantmiddleware.ParseDomains(cfg.CentralDomains)),
		)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server listen failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func readiness(pool *pgxpool.Pool, objects storage.Store) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return err
		}
		return objects.Check(ctx)
	}
}
