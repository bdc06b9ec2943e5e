package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/pos-backend/pkg/config"
	"github.com/angelmondragon/pos-backend/pkg/db"
	"github.com/angelmondragon/pos-backend/pkg/db/models"
	"github.com/angelmondragon/pos-backend/pkg/logger"
	"gorm.io/gorm"
)

// MaybeRunDev brings the schema up to date at boot. sqlite deployments always
// use gorm's AutoMigrate; Postgres runs the embedded goose migrations only in
// dev with the auto-migrate flag set.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if cfg.DB.IsSQLite() {
		logg.Info(ctx, "auto-migrating sqlite schema")
		return AutoMigrateModels(client.DB())
	}
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.SQL()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dir": EmbeddedDir})
	logg.Info(ctx, "running goose migrations (dev auto-run)")

	if err := Run(ctx, sqlDB, "", "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}

// AutoMigrateModels creates the POS tables from the gorm models.
func AutoMigrateModels(conn *gorm.DB) error {
	if err := conn.AutoMigrate(&models.Item{}, &models.Order{}, &models.OrderLine{}, &models.User{}); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
