package logging

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	annotationsKey
)

// annotations collects fields added downstream so the completion entry carries them too.
type annotations struct {
	mu     sync.Mutex
	fields []zap.Field
}

func (a *annotations) add(fields []zap.Field) {
	a.mu.Lock()
	a.fields = append(a.fields, fields...)
	a.mu.Unlock()
}

func (a *annotations) snapshot() []zap.Field {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]zap.Field(nil), a.fields...)
}

// WithLogger stores the provided logger on the context.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, if present.
func FromContext(ctx context.Context) (*zap.Logger, bool) {
	logger, ok := ctx.Value(loggerKey).(*zap.Logger)
	return logger, ok && logger != nil
}

// FromRequest returns the request logger, or fallback when none is attached.
func FromRequest(r *http.Request, fallback *zap.Logger) *zap.Logger {
	if logger, ok := FromContext(r.Context()); ok {
		return logger
	}
	return fallback
}

// With adds fields to the request logger in ctx and to the request's completion entry.
// Either may be absent.
func With(ctx context.Context, fields ...zap.Field) context.Context {
	if a, ok := ctx.Value(annotationsKey).(*annotations); ok {
		a.add(fields)
	}
	if logger, ok := FromContext(ctx); ok {
		ctx = WithLogger(ctx, logger.With(fields...))
	}
	return ctx
}

// RequestLogger attaches a request-scoped logger and writes one completion entry per
// request: Error for 5xx, Warn for 4xx, Info otherwise, Debug for health probes.
func RequestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			logger := base.With(
				zap.String("http_method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("host", r.Host),
			)
			if requestID := middleware.GetReqID(r.Context()); requestID != "" {
				logger = logger.With(zap.String("request_id", requestID))
			}

			ann := &annotations{}
			ctx := context.WithValue(r.Context(), annotationsKey, ann)
			ctx = WithLogger(ctx, logger)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := append(ann.snapshot(),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
			if ce := logger.Check(completionLevel(r, status), "request completed"); ce != nil {
				ce.Write(fields...)
			}
		})
	}
}

func completionLevel(r *http.Request, status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	case r.URL.Path == "/healthz" || r.URL.Path == "/readyz":
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}
