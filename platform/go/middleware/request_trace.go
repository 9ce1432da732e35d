package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	platformauth "github.com/zenGate-Global/palmyra-tenancy/platform/go/auth"
	platformlogging "github.com/zenGate-Global/palmyra-tenancy/platform/go/logging"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/requesttrace"
	"github.com/zenGate-Global/palmyra-tenancy/platform/go/tenant"
)

// RequestTrace stores the request's AuditInfo and adds actor fields to the request logger.
// Mount it after the tenant resolver and authentication. Credentials without a subject are
// traced as anonymous; the access guards reject them.
func RequestTrace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetReqID(r.Context())

		audit := requesttrace.Anonymous(requestID)
		if creds, ok := platformauth.UserFromContext(r.Context()); ok && creds != nil {
			if fromCreds, err := requesttrace.FromCredentials(creds, requestID); err == nil {
				audit = fromCreds
			} else if logger, ok := platformlogging.FromContext(r.Context()); ok {
				logger.Warn("credentials without subject traced as anonymous", zap.Error(err))
			}
		}

		if t, ok := tenant.FromContext(r.Context()); ok {
			audit = audit.WithTenant(t)
		}

		fields := []zap.Field{zap.String("actor_kind", string(audit.ActorKind))}
		if audit.UserID != nil && *audit.UserID != "" {
			fields = append(fields,
				zap.String("user_id", *audit.UserID),
				zap.String("principal_type", audit.PrincipalType),
			)
		}
		ctx := platformlogging.With(requesttrace.IntoContext(r.Context(), audit), fields...)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
