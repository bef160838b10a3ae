package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/garment-erp/internal"
	"github.com/frahmantamala/garment-erp/internal/rbac"
	"github.com/frahmantamala/garment-erp/internal/transport"
)

type PermissionAuthorizer interface {
	HasPermission(ctx context.Context, s rbac.Subject, p rbac.Permission) (bool, error)
	HasAnyPermission(ctx context.Context, s rbac.Subject, perms ...rbac.Permission) (bool, error)
	IsReadOnly(ctx context.Context, s rbac.Subject) (bool, error)
}

// RBACAuthorization turns permission checks into chi middleware. It expects
// AuthMiddleware to have run first.
type RBACAuthorization struct {
	*transport.BaseHandler
	authorizer PermissionAuthorizer
}

func NewRBACAuthorization(authorizer PermissionAuthorizer, logger *slog.Logger) *RBACAuthorization {
	return &RBACAuthorization{
		BaseHandler: transport.NewBaseHandler(logger),
		authorizer:  authorizer,
	}
}

func (ra *RBACAuthorization) RequirePermission(permission rbac.Permission) func(http.Handler) http.Handler {
	return ra.RequireAnyPermission(permission)
}

// RequireAnyPermission passes when the caller holds at least one of perms.
func (ra *RBACAuthorization) RequireAnyPermission(perms ...rbac.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				ra.Logger.Warn("authorization check failed: user not found in context")
				ra.WriteAppError(w, internal.ErrUnauthenticated)
				return
			}

			hasAccess, err := ra.authorizer.HasAnyPermission(r.Context(), user, perms...)
			if err != nil {
				ra.Logger.ErrorContext(r.Context(), "authorization check failed", "error", err, "user_id", user.ID)
				ra.WriteError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			if !hasAccess {
				ra.Logger.WarnContext(r.Context(), "access denied: insufficient permissions",
					"user_id", user.ID,
					"role", user.Role,
					"required_permissions", perms,
					"user_permissions", user.Permissions)
				ra.WriteAppError(w, internal.ErrInsufficientPermissions)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireWritable blocks mutating methods for read-only roles, whatever
// permissions they hold.
func (ra *RBACAuthorization) RequireWritable() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isSafeMethod(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			user, ok := UserFromContext(r.Context())
			if !ok {
				ra.WriteAppError(w, internal.ErrUnauthenticated)
				return
			}

			readOnly, err := ra.authorizer.IsReadOnly(r.Context(), user)
			if err != nil {
				ra.Logger.ErrorContext(r.Context(), "read-only check failed", "error", err, "user_id", user.ID)
				ra.WriteError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			if readOnly {
				ra.Logger.WarnContext(r.Context(), "access denied: read-only role",
					"user_id", user.ID, "role", user.Role, "method", r.Method)
				ra.WriteAppError(w, internal.ErrReadOnlyRole)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}
