package middleware

import (
	"log/slog"
	"net/http"

	"github.com/felixge/httpsnoop"
	"github.com/phrazzld/pulseweave/internal/platform/logger"
)

// RequestLogger logs one line per request with status, size and duration.
// Websocket upgrades are logged when the session ends.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)

		level := slog.LevelInfo
		switch {
		case m.Code >= http.StatusInternalServerError:
			level = slog.LevelError
		case m.Code >= http.StatusBadRequest:
			level = slog.LevelWarn
		}

		logger.FromContext(r.Context()).Log(r.Context(), level, "request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", m.Code,
			"bytes", m.Written,
			"duration_ms", m.Duration.Milliseconds(),
			"remote_addr", r.RemoteAddr)
	})
}
