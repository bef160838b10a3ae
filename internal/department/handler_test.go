package department_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"

	departmentDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/department"
	"github.com/frahmantamala/garment-erp/internal/department"
	departmentPostgres "github.com/frahmantamala/garment-erp/internal/department/postgres"
	"github.com/frahmantamala/garment-erp/internal/testutil"
	"github.com/frahmantamala/garment-erp/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"
)

var _ = Describe("Department Handler Integration", func() {
	var (
		db     *gorm.DB
		router *chi.Mux
	)

	BeforeEach(func() {
		var err error
		db, err = testutil.NewSQLiteDB(&departmentDatamodel.Department{})
		Expect(err).NotTo(HaveOccurred())

		slogger := slog.New(slog.NewTextHandler(io.Discard, nil))
		service := department.NewService(departmentPostgres.NewDepartmentRepository(db), slogger)
		_, err = service.EnsureDefaults(context.Background())
		Expect(err).NotTo(HaveOccurred())

		handler := department.NewHandler(&transport.BaseHandler{Logger: slogger}, service)
		router = chi.NewRouter()
		router.Get("/departments", handler.GetDepartments)
		router.Post("/departments", handler.CreateDepartment)
		router.Delete("/departments/{code}", handler.DeactivateDepartment)
	})

	AfterEach(func() {
		testutil.Close(db)
	})

	It("lists the seeded departments", func() {
		req := httptest.NewRequest(http.MethodGet, "/departments", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		var resp department.DepartmentsResponse
		Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
		Expect(resp.Departments).To(HaveLen(len(department.DefaultDepartments())))
	})

	It("creates a department and refuses duplicates", func() {
		body := `{"code":"embroidery","name":"Embroidery"}`
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/departments", strings.NewReader(body)))
		Expect(rec.Code).To(Equal(http.StatusCreated))

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/departments", strings.NewReader(body)))
		Expect(rec.Code).To(Equal(http.StatusConflict))
		Expect(rec.Body.String()).To(ContainSubstring("DEPARTMENT_EXISTS"))
	})

	It("hides deactivated departments", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/departments/washing", nil))
		Expect(rec.Code).To(Equal(http.StatusNoContent))

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/departments", nil))
		Expect(rec.Body.String()).NotTo(ContainSubstring(`"code":"washing"`))

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/departments/printing", nil))
		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})
})
