package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"overthinkistan/internal/config"
	"overthinkistan/internal/middleware"

	"gorm.io/gorm"
)

const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaStatus describes what ApplySchema would do and what the record
// tables currently lack.
type SchemaStatus struct {
	Mode               string
	Environment        string
	Driver             string
	WillRunSQL         bool
	WillRunAutoMigrate bool
	// Note explains a policy override, such as sqlite ignoring sql mode.
	Note              string
	AppliedVersions   []int
	PendingMigrations []Migration
	Problems          []string
}

// recordColumns are the lifecycle columns every record table carries.
var recordColumns = []string{
	"ref_id", "created_at", "created_by", "updated_at",
	"updated_by", "deleted_at", "deleted_by", "status",
}

func isProdLikeEnv(env string) bool {
	e := strings.ToLower(strings.TrimSpace(env))
	return e == "production" || e == "prod" || e == "staging" || e == "stage"
}

func normalizedSchemaMode(cfg *config.Config) string {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		return SchemaModeHybrid
	}
	return mode
}

func schemaPolicy(cfg *config.Config) (runSQL bool, runAuto bool, err error) {
	mode := normalizedSchemaMode(cfg)
	prodLike := isProdLikeEnv(cfg.Env)

	// SQL migrations target postgres; sqlite databases are always auto-migrated.
	if cfg.DBDriver == "sqlite" {
		switch mode {
		case SchemaModeSQL, SchemaModeAuto, SchemaModeHybrid:
			return false, true, nil
		default:
			return false, false, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
		}
	}

	switch mode {
	case SchemaModeSQL:
		return true, false, nil
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return false, false, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		return false, true, nil
	case SchemaModeHybrid:
		return true, !prodLike, nil
	default:
		return false, false, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

func runAutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

func driverName(cfg *config.Config) string {
	if cfg.DBDriver == "sqlite" {
		return "sqlite"
	}
	return "postgres"
}

func policyNote(cfg *config.Config) string {
	if cfg.DBDriver == "sqlite" && normalizedSchemaMode(cfg) != SchemaModeAuto {
		return "sql migrations are postgres-only; sqlite schemas come from the models"
	}
	return ""
}

// recordSchemaProblems lists missing record tables, lifecycle columns and
// unique refId indexes. An empty result means every record kind can be
// stored and looked up by refId.
func recordSchemaProblems(db *gorm.DB) []string {
	var problems []string
	m := db.Migrator()
	for _, model := range PersistentModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			problems = append(problems, fmt.Sprintf("%T: %v", model, err))
			continue
		}
		table := stmt.Schema.Table
		if !m.HasTable(model) {
			problems = append(problems, table+": table missing")
			continue
		}
		for _, col := range recordColumns {
			if !m.HasColumn(model, col) {
				problems = append(problems, table+"."+col+": column missing")
			}
		}
		if !m.HasIndex(model, "RefID") {
			problems = append(problems, table+".ref_id: unique index missing")
		}
	}
	return problems
}

// VerifyRecordSchema fails when any record table is unusable.
func VerifyRecordSchema(db *gorm.DB) error {
	if problems := recordSchemaProblems(db); len(problems) > 0 {
		return fmt.Errorf("record schema incomplete: %s", strings.Join(problems, "; "))
	}
	return nil
}

func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return err
	}
	if note := policyNote(cfg); note != "" {
		middleware.Logger.Info("Schema mode overridden", slog.String("mode", normalizedSchemaMode(cfg)), slog.String("reason", note))
	}

	if runSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}

	if runAuto {
		mode := normalizedSchemaMode(cfg)
		if mode == SchemaModeAuto && cfg.DBAutoMigrateAllowDestructive {
			middleware.Logger.Warn("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true set for DB_SCHEMA_MODE=auto; review schema diffs before production deployment")
		}
		middleware.Logger.Info("Running GORM AutoMigrate", slog.String("mode", mode), slog.String("env", cfg.Env))
		if err := runAutoMigrate(db); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	return VerifyRecordSchema(db.WithContext(ctx))
}

func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	runSQL, runAuto, err := schemaPolicy(cfg)
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               normalizedSchemaMode(cfg),
		Environment:        cfg.Env,
		Driver:             driverName(cfg),
		WillRunSQL:         runSQL,
		WillRunAutoMigrate: runAuto,
		Note:               policyNote(cfg),
		Problems:           recordSchemaProblems(db.WithContext(ctx)),
	}

	if !runSQL {
		return status, nil
	}

	applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	status.AppliedVersions = applied
	status.PendingMigrations = pendingMigrations(migrations, applied)
	return status, nil
}
