package rest

import (
	"log/slog"

	"github.com/frahmantamala/garment-erp/internal/auth"
	"github.com/frahmantamala/garment-erp/internal/cashbook"
	"github.com/frahmantamala/garment-erp/internal/department"
	"github.com/frahmantamala/garment-erp/internal/production"
	"github.com/frahmantamala/garment-erp/internal/rbac"
	"github.com/frahmantamala/garment-erp/internal/report"
	"github.com/frahmantamala/garment-erp/internal/transport/middleware"
	"github.com/frahmantamala/garment-erp/internal/transport/swagger"
	"github.com/frahmantamala/garment-erp/internal/user"
	"github.com/go-chi/chi"
)

// Handlers groups the HTTP handlers mounted under /api/v1. Auth and Authz
// are required; a nil domain handler leaves its routes unmounted. Read-only
// roles may still manage their own session and password.
type Handlers struct {
	Auth       *auth.Handler
	Authz      *auth.RBACAuthorization
	User       *user.Handler
	Department *department.Handler
	Production *production.Handler
	Cashbook   *cashbook.Handler
	Report     *report.Handler
	Health     *HealthHandler
}

type Options struct {
	AllowedOrigins []string
	Metrics        *middleware.Metrics
	MetricsPath    string
	OpenAPISpec    []byte
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts Options, logger *slog.Logger) {
	authz := h.Authz

	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware)
	}
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.CORS(opts.AllowedOrigins))

	if len(opts.OpenAPISpec) > 0 {
		router.Get(swagger.SpecPath, swagger.SpecHandler(opts.OpenAPISpec))
		router.Handle("/swagger/*", swagger.Handler())
	}
	if opts.Metrics != nil {
		path := opts.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, opts.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.Health)
			r.Get("/ping", h.Health.Ping)
		}

		r.Route("/auth", func(ar chi.Router) {
			ar.Post("/login", h.Auth.Login)
			ar.Post("/logout", h.Auth.Logout)
			if h.User != nil {
				ar.Post("/register", h.User.Register)
			}
		})

		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)
			pr.Use(middleware.UserContext)

			pr.Post("/auth/logout-all", h.Auth.LogoutAll)
			pr.Get("/auth/me", h.Auth.Me)
			pr.Get("/auth/page-access", h.Auth.PageAccess)

			if h.User != nil {
				pr.Put("/users/me/password", h.User.ChangePassword)
				pr.Route("/admin", func(ad chi.Router) {
					ad.Use(authz.RequireWritable())
					ad.With(authz.RequirePermission(rbac.ManagePermissions)).Get("/roles", h.User.Roles)
					ad.Group(func(ur chi.Router) {
						ur.Use(authz.RequirePermission(rbac.ManageUsers))
						ur.Get("/users", h.User.ListUsers)
						ur.Post("/users", h.User.CreateUser)
						ur.Get("/users/{id}", h.User.GetUser)
						ur.Patch("/users/{id}", h.User.UpdateProfile)
						ur.Put("/users/{id}/role", h.User.SetRole)
						ur.Put("/users/{id}/active", h.User.SetActive)
						ur.Delete("/users/{id}/sessions", h.User.RevokeSessions)
					})
					ad.Group(func(gr chi.Router) {
						gr.Use(authz.RequirePermission(rbac.ManagePermissions))
						gr.Post("/users/{id}/permissions", h.User.GrantPermission)
						gr.Delete("/users/{id}/permissions/{permission}", h.User.RevokePermission)
					})
				})
			}

			if h.Department != nil {
				pr.Get("/departments", h.Department.GetDepartments)
				pr.Group(func(dr chi.Router) {
					dr.Use(authz.RequireWritable())
					dr.Use(authz.RequirePermission(rbac.ManageDepartments))
					dr.Post("/departments", h.Department.CreateDepartment)
					dr.Delete("/departments/{code}", h.Department.DeactivateDepartment)
				})
			}

			if h.Production != nil {
				pr.Route("/production", func(er chi.Router) {
					er.Use(authz.RequireWritable())
					read := authz.RequireAnyPermission(rbac.ReadProduction, rbac.ReadCutting)
					er.With(read).Get("/", h.Production.ListEntries)
					er.With(read).Get("/{id}", h.Production.GetEntry)
					er.With(authz.RequireAnyPermission(rbac.CreateProduction, rbac.CreateCutting)).Post("/", h.Production.CreateEntry)
					er.With(authz.RequireAnyPermission(rbac.UpdateProduction, rbac.UpdateCutting)).Put("/{id}", h.Production.UpdateEntry)
					er.With(authz.RequireAnyPermission(rbac.DeleteProduction, rbac.DeleteCutting)).Delete("/{id}", h.Production.DeleteEntry)
				})
			}

			if h.Cashbook != nil {
				pr.Route("/cashbook", func(cr chi.Router) {
					cr.Use(authz.RequireWritable())
					cr.With(authz.RequirePermission(rbac.ReadCashbook)).Get("/", h.Cashbook.ListEntries)
					cr.With(authz.RequirePermission(rbac.ReadCashbook)).Get("/balance", h.Cashbook.GetBalance)
					cr.With(authz.RequirePermission(rbac.ReadCashbook)).Get("/{id}", h.Cashbook.GetEntry)
					cr.With(authz.RequirePermission(rbac.CreateCashbook)).Post("/", h.Cashbook.CreateEntry)
					cr.With(authz.RequirePermission(rbac.UpdateCashbook)).Put("/{id}", h.Cashbook.UpdateEntry)
					cr.With(authz.RequirePermission(rbac.DeleteCashbook)).Delete("/{id}", h.Cashbook.DeleteEntry)
				})
			}

			if h.Report != nil {
				pr.Route("/reports", func(rr chi.Router) {
					rr.Use(authz.RequirePermission(rbac.ReadReports))
					rr.Get("/production", h.Report.ProductionSummary)
					rr.Get("/cashbook", h.Report.CashbookSummary)
				})
			}
		})
	})
}
