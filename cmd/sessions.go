package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/garment-erp/internal"
	"github.com/frahmantamala/garment-erp/internal/auth"
	authPostgres "github.com/frahmantamala/garment-erp/internal/auth/postgres"
	"github.com/frahmantamala/garment-erp/pkg/logger"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Session maintenance commands",
	Long:  `One-shot session maintenance: purge expired sessions or log a user out everywhere.`,
}

var purgeSessionsCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired sessions once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSessionService(func(ctx context.Context, sessions *auth.Service, log *slog.Logger) error {
			n, err := sessions.PurgeExpiredSessions(ctx)
			if err != nil {
				return err
			}
			log.Info("expired sessions purged", "deleted", n)
			return nil
		})
	},
}

var revokeUserID string

var revokeSessionsCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Delete every session of a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if revokeUserID == "" {
			return errors.New("--user is required")
		}
		return withSessionService(func(ctx context.Context, sessions *auth.Service, log *slog.Logger) error {
			n, err := sessions.RevokeUserSessions(ctx, revokeUserID)
			if err != nil {
				return err
			}
			log.Info("user sessions revoked", "user_id", revokeUserID, "revoked", n)
			return nil
		})
	},
}

// withSessionService opens the database and hands fn an auth service scoped to session upkeep.
func withSessionService(fn func(ctx context.Context, sessions *auth.Service, log *slog.Logger) error) error {
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

	return fn(context.Background(), newSessionService(db, cfg.Security, log), log)
}

func newSessionService(db *gorm.DB, sec internal.SecurityConfig, log *slog.Logger) *auth.Service {
	tokens := auth.NewJWTTokenGenerator(sec.JWTSecret, sec.SessionTTL())
	return auth.NewService(authPostgres.NewRepository(db), tokens, nil,
		auth.WithLogger(log),
		auth.WithSessionTTL(sec.SessionTTL()))
}

func init() {
	revokeSessionsCmd.Flags().StringVar(&revokeUserID, "user", "", "id of the user to log out")

	sessionsCmd.AddCommand(purgeSessionsCmd)
	sessionsCmd.AddCommand(revokeSessionsCmd)

	rootCmd.AddCommand(sessionsCmd)
}
