package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"devfolio/internal/config"
	"devfolio/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes accepted by DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus describes what Migrate would do for the current configuration.
type SchemaStatus struct {
	Mode               string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	AppliedVersions    []int
	Pending            []Migration
}

// schemaPolicy decides between the embedded SQL migrations and AutoMigrate.
// The SQL scripts target postgres; sqlite always uses AutoMigrate.
func schemaPolicy(cfg *config.Config) (runSQL, runAuto bool, err error) {
	if cfg.DBDriver == "sqlite" {
		return false, true, nil
	}
	mode := cfg.DBSchemaMode
	if mode == "" {
		mode = SchemaModeHybrid
	}
	switch mode {
	case SchemaModeSQL:
		return true, false, nil
	case SchemaModeAuto:
		if cfg.IsProduction() {
			return false, false, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q", cfg.Env)
		}
		return false, true, nil
	case SchemaModeHybrid:
		return true, !cfg.IsProduction(), nil
	default:
		return false, false, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

// Migrate brings the schema up to date according to DB_SCHEMA_MODE.
func Migrate(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}

	if runSQL {
		migrations, err := LoadMigrations()
		if err != nil {
			return err
		}
		if err := RunMigrations(ctx, db, migrations); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}

	if runAuto {
		middleware.Logger.Info("Running GORM AutoMigrate", slog.String("env", cfg.Env))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}
	return nil
}

// GetSchemaStatus reports the schema policy and pending SQL migrations.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{
		Mode:               cfg.DBSchemaMode,
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
	}
	if !runSQL {
		return status, nil
	}

	migrations, err := LoadMigrations()
	if err != nil {
		return nil, err
	}
	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied
	for _, m := range migrations {
		if !slices.Contains(applied, m.Version) {
			status.Pending = append(status.Pending, m)
		}
	}
	return status, nil
}
