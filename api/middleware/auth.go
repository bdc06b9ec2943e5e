package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/pos-backend/api/responses"
	pkgAuth "github.com/angelmondragon/pos-backend/pkg/auth"
	"github.com/angelmondragon/pos-backend/pkg/auth/session"
	"github.com/angelmondragon/pos-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

// Auth guards the till and back office routes. A request needs a signed access
// token whose session has not been revoked by logout; the cashier or admin it
// names is then available to handlers and log lines.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := authenticate(r.Context(), cfg, sessions, r.Header.Get("Authorization"))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			userID := claims.UserID.String()
			role := string(claims.Role)
			ctx := WithAccessID(WithRole(WithUserID(r.Context(), userID), role), claims.ID)
			if logg != nil {
				ctx = logg.WithRole(logg.WithUserID(ctx, userID), role)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// authenticate resolves the Authorization header into token claims. Failures
// come back as coded errors ready for the response envelope.
func authenticate(ctx context.Context, cfg config.JWTConfig, sessions session.AccessSessionChecker, header string) (*pkgAuth.AccessTokenClaims, error) {
	token := bearerToken(header)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to continue")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "access token rejected")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "access token has no session")
	}
	if sessions == nil {
		return claims, nil
	}

	live, err := sessions.HasSession(ctx, claims.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up till session")
	}
	if !live {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session ended, sign in again")
	}
	return claims, nil
}

func bearerToken(raw string) string {
	token := strings.TrimSpace(raw)
	if len(token) > len("bearer ") && strings.EqualFold(token[:len("bearer ")], "bearer ") {
		token = strings.TrimSpace(token[len("bearer "):])
	}
	return token
}
