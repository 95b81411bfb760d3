package migrate

import (
	"context"
	"fmt"

	"github.com/inkbridge/inkbridge-backend/pkg/config"
	"github.com/inkbridge/inkbridge-backend/pkg/db"
	"github.com/inkbridge/inkbridge-backend/pkg/db/models"
	"github.com/inkbridge/inkbridge-backend/pkg/logger"
)

// MaybeRun applies the forward log schema when auto-migration is enabled.
// The log is a single append-only table, so schema management stays inside
// the binary instead of an external migration runner.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg == nil || client == nil {
		return fmt.Errorf("config and db client are required")
	}
	if !cfg.DB.AutoMigrate {
		return nil
	}

	if err := client.DB().WithContext(ctx).AutoMigrate(&models.ForwardLogEntry{}); err != nil {
		return fmt.Errorf("migrating forward log schema: %w", err)
	}
	if logg != nil {
		logg.Info(ctx, "forward log schema migrated")
	}
	return nil
}
