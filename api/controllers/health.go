package controllers

import (
	"context"
	"net/http"

	"github.com/inkbridge/inkbridge-backend/api/responses"
	"github.com/inkbridge/inkbridge-backend/pkg/config"
	pkgerrors "github.com/inkbridge/inkbridge-backend/pkg/errors"
	"github.com/inkbridge/inkbridge-backend/pkg/logger"
)

// Pinger exposes the health check surface of a backing service.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-InkBridge-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the forward log store and, when configured, redis.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP, redisP Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		w.Header().Set("X-InkBridge-Env", cfg.App.Env)

		checks := map[string]string{}

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "forward log store unavailable"))
				return
			}
			checks["db"] = "ok"
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
			checks["redis"] = "ok"
		}

		checks["status"] = "ready"
		responses.WriteSuccess(w, checks)
	}
}
