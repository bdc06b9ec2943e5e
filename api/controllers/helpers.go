package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/pos-backend/api/middleware"
	"github.com/angelmondragon/pos-backend/api/responses"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

// requireUser resolves the authenticated user or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	userID, ok := middleware.UserUUIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return uuid.Nil, false
	}
	return userID, true
}

func serviceUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, name+" service unavailable"))
}
