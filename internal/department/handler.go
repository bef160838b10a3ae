package department

import (
	"context"
	"net/http"

	"github.com/frahmantamala/garment-erp/internal"
	"github.com/frahmantamala/garment-erp/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	ListActive(ctx context.Context) ([]*Department, error)
	Create(ctx context.Context, dto CreateDepartmentDTO) (*Department, error)
	Deactivate(ctx context.Context, code string) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(baseHandler *transport.BaseHandler, service ServiceAPI) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		Service:     service,
	}
}

func (h *Handler) GetDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.Service.ListActive(r.Context())
	if err != nil {
		h.Logger.Error("GetDepartments: failed to get departments", "error", err)
		h.WriteError(w, http.StatusInternalServerError, "failed to get departments")
		return
	}

	h.WriteJSON(w, http.StatusOK, DepartmentsResponse{
		Departments: departments,
	})
}

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var dto CreateDepartmentDTO
	if err := h.DecodeJSON(r, &dto); err != nil {
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	d, err := h.Service.Create(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, d)
}

func (h *Handler) DeactivateDepartment(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Deactivate(r.Context(), chi.URLParam(r, "code")); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
