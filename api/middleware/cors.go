package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/pos-backend/pkg/config"
)

// till clients send the retry key and read back the request id and export filenames
var (
	tillRequestHeaders = []string{"Accept", "Authorization", "Content-Type", IdempotencyHeader, requestIDHeader, "X-Requested-With"}
	tillExposedHeaders = []string{requestIDHeader, "Content-Disposition"}
	tillMethods        = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}
)

// CORS lets the till and back office frontends listed in
// POS_CORS_ALLOWED_ORIGINS call the API from the browser. Preflights are
// cached for five minutes.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	policy := cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   tillMethods,
		AllowedHeaders:   tillRequestHeaders,
		ExposedHeaders:   tillExposedHeaders,
		AllowCredentials: true,
		MaxAge:           int((5 * time.Minute).Seconds()),
	}
	return cors.New(policy).Handler
}
