package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/garment-erp/api"
	"github.com/frahmantamala/garment-erp/internal"
	"github.com/frahmantamala/garment-erp/internal/auth"
	authPostgres "github.com/frahmantamala/garment-erp/internal/auth/postgres"
	authRedis "github.com/frahmantamala/garment-erp/internal/auth/redis"
	"github.com/frahmantamala/garment-erp/internal/cashbook"
	cashbookPostgres "github.com/frahmantamala/garment-erp/internal/cashbook/postgres"
	"github.com/frahmantamala/garment-erp/internal/core/events"
	"github.com/frahmantamala/garment-erp/internal/department"
	departmentPostgres "github.com/frahmantamala/garment-erp/internal/department/postgres"
	"github.com/frahmantamala/garment-erp/internal/production"
	productionPostgres "github.com/frahmantamala/garment-erp/internal/production/postgres"
	"github.com/frahmantamala/garment-erp/internal/rbac"
	"github.com/frahmantamala/garment-erp/internal/report"
	"github.com/frahmantamala/garment-erp/internal/transport"
	"github.com/frahmantamala/garment-erp/internal/transport/middleware"
	"github.com/frahmantamala/garment-erp/internal/transport/rest"
	"github.com/frahmantamala/garment-erp/internal/transport/swagger"
	"github.com/frahmantamala/garment-erp/internal/user"
	userPostgres "github.com/frahmantamala/garment-erp/internal/user/postgres"
	"github.com/frahmantamala/garment-erp/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config   *internal.Config
	DB       *gorm.DB
	SQL      *sqlx.DB
	Redis    *redis.Client
	Table    *rbac.Table
	EventBus *events.EventBus
	Router   *chi.Mux
	Logger   *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	log := deps.Logger

	if err := setupRoutes(deps); err != nil {
		log.Error("failed to set up routes", "error", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	log.Info("starting HTTP server", "address", addr, "driver", deps.Config.Database.DriverName())

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("server shutdown error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed to start", "error", err)
			deps.Close()
			os.Exit(1)
		}
	}

	deps.Close()
	log.Info("server stopped")
}

// Close drains pending events and releases connections.
func (d *Dependencies) Close() {
	if d.EventBus != nil {
		d.EventBus.Wait()
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error("redis close error", "error", err)
		}
	}
	if d.SQL != nil {
		if err := d.SQL.Close(); err != nil {
			d.Logger.Error("database close error", "error", err)
		}
	}
}

func setupRoutes(deps *Dependencies) error {
	cfg := deps.Config
	log := deps.Logger

	if _, err := swagger.LoadSpec(context.Background(), api.OpenAPISpec); err != nil {
		return err
	}

	authSvc := newAuthService(deps)
	if cfg.Security.RevokeSessionsOnUserChange {
		auth.NewSessionRevoker(authSvc, log).Register(deps.EventBus)
	}

	users := user.NewService(userPostgres.NewUserRepository(deps.DB), authSvc, authSvc, deps.Table,
		user.WithLogger(log),
		user.WithPublisher(deps.EventBus),
		user.WithSelfRegistration(cfg.Security.AllowSelfRegistration))
	departments := department.NewService(departmentPostgres.NewDepartmentRepository(deps.DB), log)
	productionSvc := production.NewService(productionPostgres.NewProductionRepository(deps.DB), departments, deps.Table, log)
	cashbookSvc := cashbook.NewService(cashbookPostgres.NewCashbookRepository(deps.DB), log)
	reportSvc := report.NewService(deps.SQL, log)

	checks := map[string]rest.Pinger{"database": deps.SQL.PingContext}
	if deps.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return deps.Redis.Ping(ctx).Err()
		}
	}

	base := transport.NewBaseHandler(log)
	handlers := rest.Handlers{
		Auth:       auth.NewHandler(authSvc, cfg.Server.SecureCookies),
		Authz:      auth.NewRBACAuthorization(auth.NewPermissionChecker(deps.Table), log),
		User:       user.NewHandler(users),
		Department: department.NewHandler(base, departments),
		Production: production.NewHandler(base, productionSvc),
		Cashbook:   cashbook.NewHandler(base, cashbookSvc),
		Report:     report.NewHandler(base, reportSvc),
		Health:     rest.NewHealthHandler(checks),
	}

	opts := rest.Options{
		AllowedOrigins: cfg.Server.Origins(),
		OpenAPISpec:    api.OpenAPISpec,
	}
	if cfg.Observability.Metrics.Enabled {
		opts.Metrics = middleware.NewMetrics()
		opts.MetricsPath = cfg.Observability.Metrics.Path
	}

	rest.RegisterAllRoutes(deps.Router, handlers, opts, log)
	return nil
}

func newAuthService(deps *Dependencies) *auth.Service {
	sec := deps.Config.Security
	opts := []auth.Option{
		auth.WithLogger(deps.Logger),
		auth.WithBCryptCost(sec.BCryptCost),
		auth.WithSessionTTL(sec.SessionTTL()),
		auth.WithCookieName(sec.Cookie()),
	}
	if deps.Redis != nil && sec.LoginMaxAttempts > 0 {
		opts = append(opts, auth.WithLoginLimiter(authRedis.NewLoginLimiter(deps.Redis, authRedis.LimiterConfig{
			MaxAttempts: sec.LoginMaxAttempts,
			Window:      sec.LoginWindow,
		})))
	}
	tokens := auth.NewJWTTokenGenerator(sec.JWTSecret, sec.SessionTTL())
	return auth.NewService(authPostgres.NewRepository(deps.DB), tokens, deps.Table, opts...)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.Init(config.Observability.Logging.Level, config.Observability.Logging.Format)

	table, err := loadTable(config.Security)
	if err != nil {
		return nil, err
	}

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database pool: %w", err)
	}

	deps := &Dependencies{
		Config:   config,
		DB:       db,
		SQL:      sqlx.NewDb(sqlDB, sqlxDriverName(config.Database)),
		Table:    table,
		EventBus: events.NewEventBus(log),
		Router:   chi.NewRouter(),
		Logger:   log,
	}

	if config.Redis.Enabled {
		client, err := initRedis(config.Redis)
		if err != nil {
			deps.Close()
			return nil, fmt.Errorf("failed to initialize redis: %w", err)
		}
		deps.Redis = client
	}

	return deps, nil
}

func loadTable(cfg internal.SecurityConfig) (*rbac.Table, error) {
	if cfg.PolicyFile == "" {
		return rbac.DefaultTable(), nil
	}
	table, err := rbac.LoadTable(cfg.PolicyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load rbac policy: %w", err)
	}
	return table, nil
}

// initDB opens the gorm connection for the configured driver and tunes its pool.
func initDB(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DriverName() {
	case "sqlite":
		dialector = sqlite.Open(cfg.GetDSN())
	default:
		dialector = postgres.Open(cfg.GetDSN())
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func sqlxDriverName(cfg internal.DatabaseConfig) string {
	if cfg.DriverName() == "sqlite" {
		return "sqlite3"
	}
	return "pgx"
}

func initRedis(cfg internal.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
