package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/angelmondragon/pos-backend/pkg/logger"
)

// Logging writes one access line per request once the handler returns.
// Health checks are logged at debug so load balancer polling stays quiet.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			fields := map[string]any{
				"status":      status,
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					fields["route"] = pattern
				}
			}
			logAccess(logg.WithFields(ctx, fields), logg, r.URL.Path, status)
		})
	}
}

func logAccess(ctx context.Context, logg *logger.Logger, path string, status int) {
	switch {
	case status >= http.StatusInternalServerError:
		logg.Warn(ctx, "request.failed")
	case strings.HasPrefix(path, "/health"):
		logg.Debug(ctx, "request.complete")
	default:
		logg.Info(ctx, "request.complete")
	}
}
