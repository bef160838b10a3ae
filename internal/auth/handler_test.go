package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/frahmantamala/garment-erp/internal/rbac"
	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"
)

var _ = ginkgo.Describe("HTTP", func() {
	var (
		mockRepo *mockRepository
		service  *Service
		handler  *Handler
		authz    *RBACAuthorization
		router   *chi.Mux
	)

	login := func(email string) string {
		u, err := service.AuthenticateUser(context.Background(), email, "correct_password")
		gomega.Expect(err).ToNot(gomega.HaveOccurred())
		return u.Token
	}

	do := func(method, path, token, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body != "" {
			req = httptest.NewRequest(method, path, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		} else {
			req = httptest.NewRequest(method, path, nil)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	ginkgo.BeforeEach(func() {
		mockRepo = newMockRepository()
		mockRepo.addUser("u-admin", "admin@factory.test", "correct_password", rbac.RoleAdmin, true)
		mockRepo.addUser("u-cash", "cash@factory.test", "correct_password", rbac.RoleCashbookManager, true)
		mockRepo.addUser("u-view", "viewer@factory.test", "correct_password", rbac.RoleReportViewer, true)
		mockRepo.addUser("u-line", "line@factory.test", "correct_password", rbac.RoleUser, true, "READ_REPORTS")

		table := rbac.DefaultTable()
		service = NewService(mockRepo, NewJWTTokenGenerator(testSecret, 0), table,
			WithBCryptCost(bcrypt.MinCost), WithLogger(quietLogger()))
		handler = NewHandler(service, false)
		authz = NewRBACAuthorization(NewPermissionChecker(table), quietLogger())

		ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }

		router = chi.NewRouter()
		router.Post("/auth/login", handler.Login)
		router.Post("/auth/logout", handler.Logout)
		router.Group(func(r chi.Router) {
			r.Use(handler.AuthMiddleware)
			r.Post("/auth/logout-all", handler.LogoutAll)
			r.Get("/auth/me", handler.Me)
			r.Get("/auth/page-access", handler.PageAccess)
			r.With(authz.RequirePermission(rbac.ReadCashbook)).Get("/cashbook", ok)
			r.With(authz.RequireAnyPermission(rbac.ReadReports, rbac.ExportReports)).Get("/reports", ok)
			r.Group(func(w chi.Router) {
				w.Use(authz.RequireWritable())
				w.Get("/production", ok)
				w.Post("/production", ok)
			})
		})
	})

	ginkgo.Describe("POST /auth/login", func() {
		ginkgo.It("returns the user and sets an HttpOnly cookie", func() {
			rec := do(http.MethodPost, "/auth/login", "", `{"email":"ADMIN@factory.test","password":"correct_password"}`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

			var resp LoginResponse
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
			gomega.Expect(resp.Token).ToNot(gomega.BeEmpty())
			gomega.Expect(resp.User.Role).To(gomega.Equal(rbac.RoleAdmin))
			gomega.Expect(resp.ExpiresIn).To(gomega.Equal(int64((7 * 24 * time.Hour).Seconds())))

			cookies := rec.Result().Cookies()
			gomega.Expect(cookies).To(gomega.HaveLen(1))
			gomega.Expect(cookies[0].Name).To(gomega.Equal("auth-token"))
			gomega.Expect(cookies[0].HttpOnly).To(gomega.BeTrue())
			gomega.Expect(cookies[0].Value).To(gomega.Equal(resp.Token))
		})

		ginkgo.It("answers 401 for bad credentials", func() {
			rec := do(http.MethodPost, "/auth/login", "", `{"email":"admin@factory.test","password":"nope"}`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("INVALID_CREDENTIALS"))
		})

		ginkgo.It("answers 400 for missing fields", func() {
			rec := do(http.MethodPost, "/auth/login", "", `{"email":"admin@factory.test"}`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})

		ginkgo.It("answers 400 for malformed JSON", func() {
			rec := do(http.MethodPost, "/auth/login", "", `{`)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})
	})

	ginkgo.Describe("AuthMiddleware", func() {
		ginkgo.It("answers 401 without a token", func() {
			rec := do(http.MethodGet, "/auth/me", "", "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("UNAUTHENTICATED"))
		})

		ginkgo.It("accepts the auth cookie", func() {
			token := login("admin@factory.test")
			req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
			req.AddCookie(&http.Cookie{Name: "auth-token", Value: token})
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		})
	})

	ginkgo.Describe("GET /auth/me", func() {
		ginkgo.It("lists effective permissions and pages", func() {
			rec := do(http.MethodGet, "/auth/me", login("line@factory.test"), "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

			var resp MeResponse
			gomega.Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(gomega.Succeed())
			gomega.Expect(resp.EffectivePermissions).To(gomega.ConsistOf(
				"CREATE_PRODUCTION", "READ_PRODUCTION", "READ_CUTTING", "READ_CASHBOOK", "READ_REPORTS",
			))
			gomega.Expect(resp.AccessiblePages).To(gomega.ConsistOf("/production", "/cutting", "/cashbook"))
			gomega.Expect(resp.ReadOnly).To(gomega.BeFalse())
		})
	})

	ginkgo.Describe("GET /auth/page-access", func() {
		ginkgo.It("answers per page and allows unknown pages", func() {
			token := login("cash@factory.test")

			rec := do(http.MethodGet, "/auth/page-access?page=/admin/users", token, "")
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(`"allowed":false`))

			rec = do(http.MethodGet, "/auth/page-access?page=/help", token, "")
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring(`"allowed":true`))
		})

		ginkgo.It("requires the page parameter", func() {
			rec := do(http.MethodGet, "/auth/page-access", login("cash@factory.test"), "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusBadRequest))
		})
	})

	ginkgo.Describe("RBACAuthorization", func() {
		ginkgo.It("passes callers holding the permission", func() {
			rec := do(http.MethodGet, "/reports", login("admin@factory.test"), "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

			rec = do(http.MethodGet, "/cashbook", login("cash@factory.test"), "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		})

		ginkgo.It("honours explicit grants", func() {
			rec := do(http.MethodGet, "/reports", login("line@factory.test"), "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))
		})

		ginkgo.It("denies with 403", func() {
			mockRepo.addUser("u-hr", "hr@factory.test", "correct_password", rbac.RoleHRManager, true)
			rec := do(http.MethodGet, "/cashbook", login("hr@factory.test"), "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("INSUFFICIENT_PERMISSIONS"))
		})

		ginkgo.It("blocks writes for read-only roles but not reads", func() {
			token := login("viewer@factory.test")
			gomega.Expect(do(http.MethodGet, "/production", token, "").Code).To(gomega.Equal(http.StatusOK))

			rec := do(http.MethodPost, "/production", token, "{}")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusForbidden))
			gomega.Expect(rec.Body.String()).To(gomega.ContainSubstring("READ_ONLY_ROLE"))

			gomega.Expect(do(http.MethodPost, "/production", login("admin@factory.test"), "{}").Code).To(gomega.Equal(http.StatusOK))
		})
	})

	ginkgo.Describe("logout", func() {
		ginkgo.It("ends the current session and clears the cookie", func() {
			token := login("admin@factory.test")

			rec := do(http.MethodPost, "/auth/logout", token, "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusNoContent))
			gomega.Expect(rec.Result().Cookies()[0].MaxAge).To(gomega.BeNumerically("<", 0))

			gomega.Expect(do(http.MethodGet, "/auth/me", token, "").Code).To(gomega.Equal(http.StatusUnauthorized))
		})

		ginkgo.It("succeeds without a session", func() {
			gomega.Expect(do(http.MethodPost, "/auth/logout", "", "").Code).To(gomega.Equal(http.StatusNoContent))
		})

		ginkgo.It("ends every session of the caller", func() {
			first := login("admin@factory.test")
			second := login("admin@factory.test")

			rec := do(http.MethodPost, "/auth/logout-all", second, "")
			gomega.Expect(rec.Code).To(gomega.Equal(http.StatusOK))

			gomega.Expect(do(http.MethodGet, "/auth/me", first, "").Code).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(do(http.MethodGet, "/auth/me", second, "").Code).To(gomega.Equal(http.StatusUnauthorized))
		})
	})
})
