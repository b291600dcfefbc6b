package middleware

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/pulseweave/internal/api/shared"
	"github.com/phrazzld/pulseweave/internal/platform/logger"
)

// Trace adds a trace ID and a request-scoped logger to the request context.
// It should run early in the chain so every later handler can log with it.
func Trace(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())
			traceID := shared.GetTraceID(ctx)

			log := base.With(slog.String("trace_id", traceID))
			ctx = logger.WithContext(ctx, log)

			w.Header().Set("X-Trace-Id", traceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
