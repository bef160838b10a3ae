package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/frahmantamala/garment-erp/internal"
	"github.com/frahmantamala/garment-erp/internal/transport"
	"github.com/frahmantamala/garment-erp/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service       ServiceAPI
	SecureCookies bool
}

func NewHandler(svc ServiceAPI, secureCookies bool) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler:   transport.NewBaseHandler(lg),
		Service:       svc,
		SecureCookies: secureCookies,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	u, err := h.Service.AuthenticateUser(r.Context(), dto.Email, dto.Password)
	if err != nil {
		h.Logger.Warn("Login: authentication failed", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.setAuthCookie(w, u.Token, int(h.Service.SessionTTL().Seconds()))
	h.WriteJSON(w, http.StatusOK, LoginResponse{
		User:      u,
		Token:     u.Token,
		ExpiresIn: int64(h.Service.SessionTTL().Seconds()),
	})
}

// Logout ends the presented session. It succeeds even without a valid token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := h.Service.ExtractToken(r); token != "" {
		h.Service.DeleteSession(r.Context(), token)
	}
	h.setAuthCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return
	}
	h.Service.DeleteAllUserSessions(r.Context(), u.ID)
	h.setAuthCookie(w, "", -1)
	h.WriteJSON(w, http.StatusOK, LogoutAllResponse{Message: "all sessions ended"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return
	}
	table := h.Service.Table()
	h.WriteJSON(w, http.StatusOK, MeResponse{
		User:                 u,
		EffectivePermissions: table.Effective(u.Role, u.GrantedPermissions()).Strings(),
		AccessiblePages:      table.AccessiblePages(u),
		ReadOnly:             table.IsReadOnlyRole(u.Role),
	})
}

func (h *Handler) PageAccess(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, internal.ErrUnauthenticated)
		return
	}
	page := r.URL.Query().Get("page")
	if page == "" {
		h.WriteAppError(w, internal.NewValidationFieldError("page", "page is required", internal.ErrCodeValidationFailed))
		return
	}
	h.WriteJSON(w, http.StatusOK, PageAccessResponse{
		Page:    page,
		Allowed: h.Service.Table().CanAccessPage(u, page),
	})
}

// AuthMiddleware rejects requests without a live session and stores the
// caller in the request context.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := h.Service.GetCurrentUser(r)
		if err != nil {
			if errors.Is(err, ErrUnauthenticated) {
				h.WriteAppError(w, internal.ErrUnauthenticated)
				return
			}
			h.Logger.Error("auth middleware: failed to resolve session", "error", err)
			h.WriteError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), u)))
	})
}

func (h *Handler) setAuthCookie(w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.Service.CookieName(),
		Value:    url.PathEscape(token),
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
