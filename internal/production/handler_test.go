package production_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"

	"github.com/frahmantamala/garment-erp/internal/auth"
	"github.com/frahmantamala/garment-erp/internal/production"
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
		"admin":    actorWith("admin", rbac.RoleAdmin),
		"operator": actorWith("operator", rbac.RoleUser),
	}

	do := func(method, path, as, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("X-Test-Actor", as)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	BeforeEach(func() {
		var svc *production.Service
		db, svc = newProductionService()
		h := production.NewHandler(transport.NewBaseHandler(quietLogger()), svc)

		router = chi.NewRouter()
		router.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if u, ok := actors[r.Header.Get("X-Test-Actor")]; ok {
					r = r.WithContext(auth.ContextWithUser(r.Context(), u))
				}
				next.ServeHTTP(w, r)
			})
		})
		router.Get("/production", h.ListEntries)
		router.Post("/production", h.CreateEntry)
		router.Get("/production/{id}", h.GetEntry)
		router.Put("/production/{id}", h.UpdateEntry)
		router.Delete("/production/{id}", h.DeleteEntry)
	})

	AfterEach(func() {
		testutil.Close(db)
	})

	create := func(as, body string) *production.Entry {
		rec := do(http.MethodPost, "/production", as, body)
		Expect(rec.Code).To(Equal(http.StatusCreated), rec.Body.String())
		var entry production.Entry
		Expect(json.Unmarshal(rec.Body.Bytes(), &entry)).To(Succeed())
		return &entry
	}

	It("creates, reads, updates and deletes an entry", func() {
		entry := create("admin", `{"date":"2024-03-14","department":"sewing","target_qty":100,"produced_qty":90,"rejected_qty":9}`)
		Expect(entry.Efficiency).To(Equal(90.0))

		path := "/production/" + strconv.FormatInt(entry.ID, 10)
		rec := do(http.MethodGet, path, "operator", "")
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = do(http.MethodPut, path, "admin", `{"produced_qty":100}`)
		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring(`"efficiency":100`))

		rec = do(http.MethodDelete, path, "admin", "")
		Expect(rec.Code).To(Equal(http.StatusNoContent))

		rec = do(http.MethodGet, path, "admin", "")
		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(rec.Body.String()).To(ContainSubstring("PRODUCTION_ENTRY_NOT_FOUND"))
	})

	It("filters listings by department and date", func() {
		create("admin", `{"date":"2024-03-14","department":"sewing","target_qty":10,"produced_qty":10}`)
		create("admin", `{"date":"2024-03-02","department":"packing","target_qty":10,"produced_qty":10}`)

		rec := do(http.MethodGet, "/production?from=2024-03-10&limit=5", "operator", "")
		Expect(rec.Code).To(Equal(http.StatusOK))
		var list production.EntryList
		Expect(json.Unmarshal(rec.Body.Bytes(), &list)).To(Succeed())
		Expect(list.Total).To(Equal(int64(1)))
		Expect(list.Limit).To(Equal(5))
		Expect(list.Entries[0].DepartmentCode).To(Equal("sewing"))

		rec = do(http.MethodGet, "/production?department=packing", "operator", "")
		Expect(json.Unmarshal(rec.Body.Bytes(), &list)).To(Succeed())
		Expect(list.Total).To(Equal(int64(1)))

		rec = do(http.MethodGet, "/production?from=yesterday", "operator", "")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("maps permission and validation failures", func() {
		rec := do(http.MethodPost, "/production", "operator",
			`{"date":"2024-03-14","department":"cutting","target_qty":10,"produced_qty":10}`)
		Expect(rec.Code).To(Equal(http.StatusForbidden))

		rec = do(http.MethodPost, "/production", "operator",
			`{"date":"2024-03-14","department":"sewing","target_qty":10,"produced_qty":5,"rejected_qty":6}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(rec.Body.String()).To(ContainSubstring("INVALID_QUANTITY"))

		rec = do(http.MethodPost, "/production", "operator", `{"unknown":true}`)
		Expect(rec.Code).To(Equal(http.StatusBadRequest))

		rec = do(http.MethodGet, "/production/abc", "operator", "")
		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("requires an authenticated caller", func() {
		rec := do(http.MethodGet, "/production", "", "")
		Expect(rec.Code).To(Equal(http.StatusUnauthorized))
	})
})

