package user

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/garment-erp/internal"
	"github.com/frahmantamala/garment-erp/internal/auth"
	"github.com/frahmantamala/garment-erp/internal/rbac"
	"github.com/frahmantamala/garment-erp/internal/transport"
	"github.com/frahmantamala/garment-erp/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	ListUsers(ctx context.Context, filter ListFilter) (*UserList, error)
	GetUser(ctx context.Context, id string) (*User, error)
	CreateUser(ctx context.Context, actor *auth.User, dto CreateUserDTO) (*User, error)
	Register(ctx context.Context, dto RegisterDTO) (*User, error)
	UpdateProfile(ctx context.Context, actor *auth.User, id string, dto UpdateProfileDTO) (*User, error)
	SetRole(ctx context.Context, actor *auth.User, id, role string) (*User, error)
	SetActive(ctx context.Context, actor *auth.User, id string, active bool) (*User, error)
	RevokeSessions(ctx context.Context, actor *auth.User, id string) (int64, error)
	GrantPermission(ctx context.Context, actor *auth.User, id, permission string) (*User, error)
	RevokePermission(ctx context.Context, actor *auth.User, id, permission string) (*User, error)
	ChangePassword(ctx context.Context, actor *auth.User, dto ChangePasswordDTO) error
	Roles() []RoleEntry
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// ListUsers handles GET /admin/users
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Search: q.Get("search"),
		Limit:  h.QueryInt(r, "limit", DefaultListLimit),
		Offset: h.QueryInt(r, "offset", 0),
	}
	if raw := q.Get("role"); raw != "" {
		role, err := rbac.ParseRole(raw)
		if err != nil {
			h.HandleServiceError(w, ErrInvalidRole)
			return
		}
		filter.Role = role
	}
	if raw := q.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			h.WriteAppError(w, internal.NewValidationFieldError("active", "active must be true or false", internal.ErrCodeValidationFailed))
			return
		}
		filter.Active = &active
	}

	list, err := h.Service.ListUsers(r.Context(), filter)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, list)
}

// GetUser handles GET /admin/users/{id}
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.Service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// CreateUser handles POST /admin/users
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var dto CreateUserDTO
	if !h.decode(w, r, &dto) {
		return
	}

	u, err := h.Service.CreateUser(r.Context(), actor, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, u)
}

// UpdateProfile handles PATCH /admin/users/{id}
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var dto UpdateProfileDTO
	if !h.decode(w, r, &dto) {
		return
	}

	u, err := h.Service.UpdateProfile(r.Context(), actor, chi.URLParam(r, "id"), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// SetRole handles PUT /admin/users/{id}/role
func (h *Handler) SetRole(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var dto SetRoleDTO
	if !h.decode(w, r, &dto) {
		return
	}

	u, err := h.Service.SetRole(r.Context(), actor, chi.URLParam(r, "id"), dto.Role)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// SetActive handles PUT /admin/users/{id}/active
func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var dto SetActiveDTO
	if !h.decode(w, r, &dto) {
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	u, err := h.Service.SetActive(r.Context(), actor, chi.URLParam(r, "id"), *dto.IsActive)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// RevokeSessions handles DELETE /admin/users/{id}/sessions
func (h *Handler) RevokeSessions(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	n, err := h.Service.RevokeSessions(r.Context(), actor, id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, RevokeSessionsResponse{UserID: id, Revoked: n})
}

// GrantPermission handles POST /admin/users/{id}/permissions
func (h *Handler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var dto PermissionDTO
	if !h.decode(w, r, &dto) {
		return
	}

	u, err := h.Service.GrantPermission(r.Context(), actor, chi.URLParam(r, "id"), dto.Permission)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// RevokePermission handles DELETE /admin/users/{id}/permissions/{permission}
func (h *Handler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	u, err := h.Service.RevokePermission(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "permission"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, u)
}

// Roles handles GET /admin/roles
func (h *Handler) Roles(w http.ResponseWriter, r *http.Request) {
	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"roles": h.Service.Roles(),
	})
}

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if !h.decode(w, r, &dto) {
		return
	}
	u, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusCreated, u)
}

// ChangePassword handles PUT /users/me/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var dto ChangePasswordDTO
	if !h.decode(w, r, &dto) {
		return
	}
	if err := h.Service.ChangePassword(r.Context(), actor, dto); err != nil {
		h.HandleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (*auth.User, bool) {
	u, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return nil, false
	}
	return u, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := h.DecodeJSON(r, v); err != nil {
		h.Logger.Warn("invalid request body", "path", r.URL.Path, "error", err)
		h.WriteAppError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return false
	}
	return true
}
