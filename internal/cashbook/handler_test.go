package cashbook_test

import (
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/frahmantamala/garment-erp/internal/auth"
	"github.com/frahmantamala/garment-erp/internal/cashbook"
	"github.com/frahmantamala/garment-erp/internal/rbac"
	"github.com/frahmantamala/garment-erp/internal/testutil"
	"github.com/frahmantamala/garment-erp/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("Handler", func() {
	var (
		db     *gorm.DB
		router *chi.Mux
	)

	actors := map[string]*auth.User{
		"clerk":    clerk,
		"viewer":   {ID: "viewer", Role: rbac.RoleReportViewer, IsActive: true},
		"operator": {ID: "operator", Role: rbac.RoleUser, IsActive: true},
		"hr":       {ID: "hr", Role: rbac.RoleHRManager, IsActive: true},
	}

	do := func(method, path, as, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("X-Test-Actor", as)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		var svc *cashbook.Service
		db, svc = newCashbookService()
		h := cashbook.NewHandler(transport.NewBaseHandler(quietLogger()), svc)
		authz := auth.NewRBACAuthorization(auth.NewPermissionChecker(rbac.DefaultTable()), quietLogger())

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if u, ok := actors[r.Header.Get("X-Test-Actor")]; ok {
					r = r.WithContext(auth.ContextWithUser(r.Context(), u))
				}
				next.ServeHTTP(w, r)
			})
		})
		router.Route("/cashbook", func(r chi.Router) {
			r.Use(authz.RequireWritable())
			r.With(authz.RequirePermission(rbac.ReadCashbook)).Get("/", h.ListEntries)
			r.With(authz.RequirePermission(rbac.ReadCashbook)).Get("/balance", h.GetBalance)
			r.With(authz.RequirePermission(rbac.CreateCashbook)).Post("/", h.CreateEntry)
			r.With(authz.RequirePermission(rbac.ReadCashbook)).Get("/{id}", h.GetEntry)
			r.With(authz.RequirePermission(rbac.UpdateCashbook)).Put("/{id}", h.UpdateEntry)
			r.With(authz.RequirePermission(rbac.DeleteCashbook)).Delete("/{id}", h.DeleteEntry)
		})
	})

	AfterEach(func() {
		testutil.Close(db)
	})

	It("records entries and reports the balance", func() {
		rec := do(http.MethodPost, "/cashbook", "clerk",
			`{"date":"2024-06-01","entry_type":"cash_in","head":"sales","amount":900}`)
		Expect(rec.Code).To(Equal(http.StatusCreated))
		rec = do(http.MethodPost, "/cashbook", "clerk",
			`{"date":"2024-06-02","entry_type":"cash_out","head":"wages","amount":400}`)
		Expect(rec.Code).To(Equal(http.StatusCreated))

		rec = do(http.MethodGet, "/cashbook/balance?from=2024-06-02", "viewer", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"opening":900`))
		Expect(rec.Body.String()).To(ContainSubstring(`"closing":500`))

		rec = do(http.MethodGet, "/cashbook?type=cash_out", "operator", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"total":1`))
	})

	It("enforces the cashbook permissions", func() {
		rec := do(http.MethodPost, "/cashbook", "operator",
			`{"date":"2024-06-01","entry_type":"cash_in","head":"sales","amount":1}`)
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(rec.Body.String()).To(ContainSubstring("INSUFFICIENT_PERMISSIONS"))

		rec = do(http.MethodGet, "/cashbook", "hr", "")
		Expect(rec.Code).To(Equal(http.StatusForbidden))

		rec = do(http.MethodDelete, "/cashbook/1", "viewer", "")
		Expect(rec.Code).To(Equal(http.StatusForbidden))
		Expect(rec.Body.String()).To(ContainSubstring("READ_ONLY_ROLE"))

		rec = do(http.MethodGet, "/cashbook", "", "")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})

	It("maps missing entries and bad input", func() {
		rec := do(http.MethodGet, "/cashbook/77", "clerk", "")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(rec.Body.String()).To(ContainSubstring("CASHBOOK_ENTRY_NOT_FOUND"))

		rec = do(http.MethodPost, "/cashbook", "clerk",
			`{"date":"2024-06-01","entry_type":"loan","head":"bank","amount":1}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("INVALID_ENTRY_TYPE"))

		rec = do(http.MethodGet, "/cashbook/balance?to=june", "clerk", "")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})
})
