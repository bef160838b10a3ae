package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/garment-erp/internal"
	"github.com/frahmantamala/garment-erp/internal/auth"
	authPostgres "github.com/frahmantamala/garment-erp/internal/auth/postgres"
	"github.com/frahmantamala/garment-erp/internal/department"
	departmentPostgres "github.com/frahmantamala/garment-erp/internal/department/postgres"
	"github.com/frahmantamala/garment-erp/internal/rbac"
	"github.com/frahmantamala/garment-erp/internal/user"
	userPostgres "github.com/frahmantamala/garment-erp/internal/user/postgres"
	"github.com/frahmantamala/garment-erp/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	adminEmail    string
	adminName     string
	adminPassword string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the permission catalog, departments and the first super admin",
	Long: `Seed the database with the permission catalog and the default departments.
When --admin-email and --admin-password are given, a SUPER_ADMIN account is created unless the email is taken.
Running seed again is safe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configDir)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		log := logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

		db, err := initDB(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		defer closeDB(db)

		table, err := loadTable(cfg.Security)
		if err != nil {
			return err
		}

		return seed(context.Background(), db, table, cfg.Security, seedAdmin{
			Email:    adminEmail,
			Name:     adminName,
			Password: adminPassword,
		}, log)
	},
}

// seedAdmin is the optional bootstrap account; an empty Email skips it.
type seedAdmin struct {
	Email    string
	Name     string
	Password string
}

func seed(ctx context.Context, db *gorm.DB, table *rbac.Table, sec internal.SecurityConfig, admin seedAdmin, log *slog.Logger) error {
	authSvc := auth.NewService(authPostgres.NewRepository(db), auth.NewJWTTokenGenerator(sec.JWTSecret, sec.SessionTTL()), table,
		auth.WithLogger(log), auth.WithBCryptCost(sec.BCryptCost))
	users := user.NewService(userPostgres.NewUserRepository(db), authSvc, authSvc, table, user.WithLogger(log))
	departments := department.NewService(departmentPostgres.NewDepartmentRepository(db), log)

	n, err := users.SyncPermissions(ctx)
	if err != nil {
		return err
	}
	log.Info("permission catalog seeded", "permissions", n)

	added, err := departments.EnsureDefaults(ctx)
	if err != nil {
		return err
	}
	log.Info("departments seeded", "added", added)

	if admin.Email == "" {
		return nil
	}
	if admin.Password == "" {
		return errors.New("--admin-password is required with --admin-email")
	}

	system := &auth.User{ID: "system", Role: rbac.RoleSuperAdmin}
	created, err := users.CreateUser(ctx, system, user.CreateUserDTO{
		Email:    admin.Email,
		Name:     admin.Name,
		Password: admin.Password,
		Role:     string(rbac.RoleSuperAdmin),
	})
	if errors.Is(err, user.ErrEmailTaken) {
		log.Info("super admin already exists; skipped", "email", admin.Email)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create super admin: %w", err)
	}

	log.Info("super admin seeded", "user_id", created.ID, "email", created.Email)
	return nil
}

func init() {
	seedCmd.Flags().StringVar(&adminEmail, "admin-email", "", "email of the super admin to create")
	seedCmd.Flags().StringVar(&adminName, "admin-name", "Administrator", "display name of the super admin")
	seedCmd.Flags().StringVar(&adminPassword, "admin-password", "", "password of the super admin to create")
}
