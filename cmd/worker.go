package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/garment-erp/internal/auth"
	"github.com/frahmantamala/garment-erp/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start long-running background jobs that keep the database tidy.`,
}

var sessionWorkerCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Start the expired session purger",
	Long:  `Delete expired sessions on a cron schedule (six fields, seconds first) until interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return startSessionWorker()
	},
}

var purgeSchedule string

func startSessionWorker() error {
	config, err := loadConfig(configDir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)

	db, err := initDB(config.Database)
	if err != nil {
		return fmt.Errorf("failed to init db: %w", err)
	}
	defer closeDB(db)

	sessions := newSessionService(db, config.Security, log)
	purger := auth.NewPurger(sessions, getStringFlag(purgeSchedule, config.Security.SessionPurgeSchedule), log)

	// purge once before the first tick
	if n, err := purger.RunOnce(context.Background()); err != nil {
		log.Error("initial session purge failed", "error", err)
	} else {
		log.Info("initial session purge finished", "deleted", n)
	}

	if err := purger.Start(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info("session worker is running. Press Ctrl+C to stop.")

	sig := <-sigChan
	log.Info("received signal, shutting down session worker", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	select {
	case <-purger.Stop().Done():
		log.Info("session worker shutdown complete")
	case <-ctx.Done():
		log.Warn("shutdown timeout reached, forcing exit")
	}
	return nil
}

func getStringFlag(flagValue, configValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return configValue
}

func init() {
	sessionWorkerCmd.Flags().StringVar(&purgeSchedule, "schedule", "", "Cron schedule with seconds field (overrides config)")

	workerCmd.AddCommand(sessionWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}
