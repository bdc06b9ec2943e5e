package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/pos-backend/api/responses"
	"github.com/angelmondragon/pos-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/pos-backend/pkg/errors"
	"github.com/angelmondragon/pos-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency checked by the readiness check.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-POS-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every named dependency and reports 503 when any is down.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-POS-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := make(map[string]string, len(deps))
		var failed bool
		for name, dep := range deps {
			if dep == nil {
				checks[name] = "missing"
				failed = true
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				failed = true
				if logg != nil {
					logg.Error(logg.WithField(r.Context(), "dependency", name), "health.ready.ping_failed", err)
				}
				continue
			}
			checks[name] = "up"
		}

		if failed {
			err := pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(checks)
			responses.WriteError(r.Context(), nil, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
