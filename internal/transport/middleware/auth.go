package middleware

import (
	"net/http"

	"github.com/frahmantamala/garment-erp/internal"
	"github.com/frahmantamala/garment-erp/pkg/logger"
)

// UserContext tags the request logger with the authenticated principal.
// Mount it after the auth middleware; anonymous requests pass through untouched.
func UserContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := internal.UserIDFromContext(r.Context())
		if userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := logger.With(r.Context(), "user_id", userID, "role", internal.RoleFromContext(r.Context()))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
