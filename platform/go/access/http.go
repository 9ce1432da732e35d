package access

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	platformlogging "github.com/zenGate-Global/palmyra-tenancy/platform/go/logging"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/problems"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/requesttrace"
)

type ctxKey string

const (
	membershipKey ctxKey = "PALMYRA_TENANT_MEMBERSHIP"
	bypassKey     ctxKey = "PALMYRA_SUPERADMIN_BYPASS"
)

// WithMembership stores the membership that authorized the request.
func WithMembership(ctx context.Context, m Membership) context.Context {
	return context.WithValue(ctx, membershipKey, m)
}

// MembershipFromContext returns the membership attached by the tenant guard.
// It is absent when the request was authorized through the superadmin bypass.
func MembershipFromContext(ctx context.Context) (Membership, bool) {
	m, ok := ctx.Value(membershipKey).(Membership)
	return m, ok
}

// BypassedFromContext reports whether the superadmin bypass authorized the request.
func BypassedFromContext(ctx context.Context) bool {
	v, _ := ctx.Value(bypassKey).(bool)
	return v
}

// Middleware runs chain for every request and rejects with an RFC 7807 body on failure.
func Middleware(chain Chain, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		panic("access middleware: logger is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			req := NewRequest(r.Context())
			if err := chain.Evaluate(req); err != nil {
				reject(w, r, err, platformlogging.FromRequest(r, logger))
				return
			}

			ctx := r.Context()
			membershipID := ""
			if req.Membership != nil {
				ctx = WithMembership(ctx, *req.Membership)
				membershipID = req.Membership.ID.String()
			}
			if req.Bypassed {
				ctx = context.WithValue(ctx, bypassKey, true)
			}
			if audit, ok := requesttrace.FromContext(ctx); ok && (membershipID != "" || req.Bypassed) {
				ctx = requesttrace.IntoContext(ctx, audit.WithAccess(membershipID, req.Bypassed))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireTenantMember is Middleware over MembershipGuard.
func RequireTenantMember(caps Capabilities, logger *zap.Logger) func(http.Handler) http.Handler {
	return Middleware(MembershipGuard(caps), logger)
}

// RequireTenant only fails fast when no tenant was resolved; used by tenant routes that allow anonymous access.
func RequireTenant(logger *zap.Logger) func(http.Handler) http.Handler {
	return Middleware(Chain{TenantInitialized}, logger)
}

// RequireSuperadmin is Middleware over SuperadminGuard.
func RequireSuperadmin(logger *zap.Logger) func(http.Handler) http.Handler {
	return Middleware(SuperadminGuard(), logger)
}

func reject(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	fields := []zap.Field{zap.String("path", r.URL.Path), zap.String("host", r.Host)}

	rej, ok := AsRejection(err)
	if !ok {
		logger.Error("access check failed", append(fields, zap.Error(err))...)
		problems.Write(w, problems.New("Internal server error", "an unexpected error occurred", problems.TypeInternal, http.StatusInternalServerError, nil))
		return
	}

	fields = append(fields, zap.String("reason", string(rej.Kind)))
	switch rej.Kind {
	case KindTenantNotInitialized:
		platformlogging.Alert(logger, "tenant-only route reached without tenant context", fields...)
		problems.Write(w, problems.New("Tenant context not initialized", rej.Message, problems.TypeTenantNotReady, rej.Status, nil))
	case KindUnauthenticated:
		logger.Info("request rejected", fields...)
		w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
		problems.Write(w, problems.New("Unauthorized", rej.Message, problems.TypeUnauthorized, rej.Status, nil))
	default:
		logger.Warn("request rejected", fields...)
		problems.Write(w, problems.New("Forbidden", rej.Message, problems.TypeForbidden, rej.Status, nil))
	}
}
