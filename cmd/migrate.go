package cmd

import (
	"context"
	"database/sql"
	"fmt"

	cashbookDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/cashbook"
	departmentDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/department"
	productionDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/production"
	userDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/user"
	"github.com/frahmantamala/garment-erp/pkg/logger"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
)

var (
	migrateCmd = &cobra.Command{
		RunE:  runMigration,
		Use:   "migrate",
		Short: "to run db migration files under db/migrations directory",
		Long: `Apply the SQL migrations under db/migrations with goose.
SQLite databases are local development stores and are migrated from the models instead.`,
	}
	migrateRollback bool
	migrateDir      string
)

func init() {
	migrateCmd.Flags().BoolVarP(&migrateRollback, "rollback", "r", false, "to rollback the latest version of sql migration")
	migrateCmd.PersistentFlags().StringVarP(&migrateDir, "dir", "d", "db/migrations", "sql migrations directory")
}

func runMigration(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(configDir)
	if err != nil {
		return err
	}
	log := logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	if cfg.Database.DriverName() == "sqlite" {
		if migrateRollback {
			return fmt.Errorf("rollback is not supported for sqlite databases")
		}
		db, err := initDB(cfg.Database)
		if err != nil {
			return err
		}
		defer closeDB(db)
		if err := db.WithContext(ctx).AutoMigrate(schemaModels()...); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		log.Info("sqlite schema migrated", "source", cfg.Database.GetDSN())
		return nil
	}

	db, err := goose.OpenDBWithDriver("pgx", cfg.Database.GetDSN())
	if err != nil {
		return fmt.Errorf("goose: failed to open DB: %w", err)
	}
	defer func(db *sql.DB) { _ = db.Close() }(db)
	goose.SetTableName("schema_migrations")

	command := "up"
	if migrateRollback {
		command = "down"
	}
	if err := goose.RunContext(ctx, command, db, migrateDir); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}

	log.Info("migrations applied", "command", command, "dir", migrateDir)
	return nil
}

func schemaModels() []interface{} {
	return []interface{}{
		&userDatamodel.User{},
		&userDatamodel.Permission{},
		&userDatamodel.UserPermission{},
		&userDatamodel.Session{},
		&departmentDatamodel.Department{},
		&productionDatamodel.Entry{},
		&cashbookDatamodel.Entry{},
	}
}
