package user_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/garment-erp/internal/auth"
	"github.com/frahmantamala/garment-erp/internal/rbac"
	"github.com/frahmantamala/garment-erp/internal/testutil"
	"github.com/frahmantamala/garment-erp/internal/user"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Handler", func() {
	var (
		f      *fixture
		router *chi.Mux
	)

	login := func(email string) string {
		u, err := f.authSvc.AuthenticateUser(context.Background(), email, "correct_password")
		Expect(err).NotTo(HaveOccurred())
		return u.Token
	}

	do := func(method, path, token, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		f = newFixture()
		f.create("admin@factory.test", rbac.RoleAdmin)
		f.create("manager@factory.test", rbac.RoleManager)

		authHandler := auth.NewHandler(f.authSvc, false)
		authz := auth.NewRBACAuthorization(auth.NewPermissionChecker(f.authSvc.Table()), quietLogger())
		h := user.NewHandler(f.service)

		router = chi.NewRouter()
		router.Post("/auth/register", h.Register)
		router.Group(func(r chi.Router) {
			r.Use(authHandler.AuthMiddleware)
			r.Put("/users/me/password", h.ChangePassword)
			r.Route("/admin", func(r chi.Router) {
				r.With(authz.RequirePermission(rbac.ManagePermissions)).Get("/roles", h.Roles)
				r.Group(func(r chi.Router) {
					r.Use(authz.RequirePermission(rbac.ManageUsers))
					r.Get("/users", h.ListUsers)
					r.Post("/users", h.CreateUser)
					r.Get("/users/{id}", h.GetUser)
					r.Put("/users/{id}/active", h.SetActive)
					r.Delete("/users/{id}/sessions", h.RevokeSessions)
				})
				r.With(authz.RequirePermission(rbac.ManagePermissions)).Post("/users/{id}/permissions", h.GrantPermission)
				r.With(authz.RequirePermission(rbac.ManagePermissions)).Delete("/users/{id}/permissions/{permission}", h.RevokePermission)
			})
		})
	})

	AfterEach(func() {
		testutil.Close(f.db)
	})

	It("lets admins create and list users", func() {
		token := login("admin@factory.test")

		rec := do(http.MethodPost, "/admin/users", token,
			`{"email":"packer@factory.test","name":"Packer","password":"secret1","role":"USER"}`)
		Expect(rec.Code).To(Equal(http.StatusCreated))

		var created user.User
		Expect(json.Unmarshal(rec.Body.Bytes(), &created)).To(Succeed())
		Expect(created.Role).To(Equal(rbac.RoleUser))
		Expect(rec.Body.String()).NotTo(ContainSubstring("password"))

		rec = do(http.MethodGet, "/admin/users?role=user", token, "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var list user.UserList
		Expect(json.Unmarshal(rec.Body.Bytes(), &list)).To(Succeed())
		Expect(list.Total).To(Equal(int64(1)))
	})

	It("forbids users without MANAGE_USERS", func() {
		rec := do(http.MethodGet, "/admin/users", login("manager@factory.test"), "")
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(rec.Body.String()).To(ContainSubstring("INSUFFICIENT_PERMISSIONS"))
	})

	It("answers 401 without a session", func() {
		Expect(do(http.MethodGet, "/admin/users", "", "").Code).To(Equal(http.StatusUnauthorized))
	})

	It("maps service errors onto status codes", func() {
		token := login("admin@factory.test")

		Expect(do(http.MethodGet, "/admin/users/nobody", token, "").Code).To(Equal(http.StatusNotFound))

		rec := do(http.MethodPost, "/admin/users", token,
			`{"email":"manager@factory.test","name":"Dup","password":"secret1","role":"USER"}`)
		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(rec.Body.String()).To(ContainSubstring("EMAIL_TAKEN"))

		Expect(do(http.MethodPost, "/admin/users", token, `{"unknown":true}`).Code).To(Equal(http.StatusBadRequest))
		Expect(do(http.MethodGet, "/admin/users?active=maybe", token, "").Code).To(Equal(http.StatusBadRequest))
	})

	It("deactivates a user and ends their sessions", func() {
		managerToken := login("manager@factory.test")
		var manager user.User
		rec := do(http.MethodGet, "/admin/users?search=manager", login("admin@factory.test"), "")
		var list user.UserList
		Expect(json.Unmarshal(rec.Body.Bytes(), &list)).To(Succeed())
		Expect(list.Users).To(HaveLen(1))
		manager = *list.Users[0]

		adminToken := login("admin@factory.test")
		rec = do(http.MethodDelete, "/admin/users/"+manager.ID+"/sessions", adminToken, "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"revoked":1`))

		Expect(do(http.MethodPut, "/users/me/password", managerToken,
			`{"current_password":"correct_password","new_password":"another1"}`).Code).To(Equal(http.StatusUnauthorized))

		rec = do(http.MethodPut, "/admin/users/"+manager.ID+"/active", adminToken, `{"is_active":false}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"is_active":false`))

		Expect(do(http.MethodPut, "/admin/users/"+manager.ID+"/active", adminToken, `{}`).Code).To(Equal(http.StatusBadRequest))
	})

	It("grants and revokes explicit permissions", func() {
		token := login("admin@factory.test")
		rec := do(http.MethodGet, "/admin/users?search=manager", token, "")
		var list user.UserList
		Expect(json.Unmarshal(rec.Body.Bytes(), &list)).To(Succeed())
		id := list.Users[0].ID

		rec = do(http.MethodPost, "/admin/users/"+id+"/permissions", token, `{"permission":"MANAGE_DEPARTMENTS"}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("MANAGE_DEPARTMENTS"))

		rec = do(http.MethodPost, "/admin/users/"+id+"/permissions", token, `{"permission":"TELEPORT"}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("INVALID_PERMISSION"))

		rec = do(http.MethodDelete, "/admin/users/"+id+"/permissions/MANAGE_DEPARTMENTS", token, "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).NotTo(ContainSubstring("MANAGE_DEPARTMENTS"))
	})

	It("exposes the role table", func() {
		rec := do(http.MethodGet, "/admin/roles", login("admin@factory.test"), "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"role":"REPORT_VIEWER"`))
	})

	It("refuses registration while it is disabled", func() {
		rec := do(http.MethodPost, "/auth/register", "", `{"email":"new@factory.test","name":"New","password":"secret1"}`)
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(rec.Body.String()).To(ContainSubstring("REGISTRATION_CLOSED"))
	})

	It("changes the caller's password", func() {
		token := login("manager@factory.test")
		rec := do(http.MethodPut, "/users/me/password", token, `{"current_password":"correct_password","new_password":"another1"}`)
		Expect(rec.Code).To(Equal(http.StatusNoContent))

		_, err := f.authSvc.AuthenticateUser(context.Background(), "manager@factory.test", "another1")
		Expect(err).NotTo(HaveOccurred())
	})
})
