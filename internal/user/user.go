package user

import (
	"errors"
	"time"

	"github.com/frahmantamala/garment-erp/internal"
	userDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/user"
	"github.com/frahmantamala/garment-erp/internal/rbac"
)

// User is the administrative view of an account. It never carries the hash.
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        rbac.Role  `json:"role"`
	IsActive    bool       `json:"is_active"`
	Permissions []string   `json:"permissions"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (u *User) SubjectRole() rbac.Role {
	return u.Role
}

func (u *User) GrantedPermissions() []rbac.Permission {
	out := make([]rbac.Permission, 0, len(u.Permissions))
	for _, name := range u.Permissions {
		if p := rbac.Permission(name); p.IsValid() {
			out = append(out, p)
		}
	}
	return out
}

type ListFilter struct {
	Role   rbac.Role
	Active *bool
	Search string
	Limit  int
	Offset int
}

type UserList struct {
	Users  []*User `json:"users"`
	Total  int64   `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// RoleEntry is one row of the role table as exposed for auditing.
type RoleEntry struct {
	Role        rbac.Role `json:"role"`
	Permissions []string  `json:"permissions"`
	Pages       []string  `json:"pages"`
	ReadOnly    bool      `json:"read_only"`
}

// ErrNotFound is returned by repositories; the service maps it to ErrUserNotFound.
var ErrNotFound = errors.New("user not found")

var (
	ErrUserNotFound       = internal.NewNotFoundError("user not found", internal.ErrCodeUserNotFound)
	ErrEmailTaken         = internal.NewConflictError("email is already registered", internal.ErrCodeEmailTaken)
	ErrInvalidRole        = internal.NewValidationError("unknown role", internal.ErrCodeInvalidRole)
	ErrInvalidPermission  = internal.NewValidationError("unknown permission", internal.ErrCodeInvalidPermission)
	ErrRegistrationClosed = internal.NewForbiddenError("self registration is disabled", internal.ErrCodeRegistrationClosed)
	ErrWrongPassword      = internal.NewValidationError("current password is incorrect", internal.ErrCodeWrongPassword)
	ErrSuperAdminOnly     = internal.NewForbiddenError("only a super admin can manage super admin accounts", internal.ErrCodeInsufficientPermissions)
	ErrSelfLockout        = internal.NewValidationError("cannot deactivate or demote your own account", internal.ErrCodeValidationFailed)
)

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        rbac.Role(u.Role),
		IsActive:    u.IsActive,
		Permissions: u.PermissionNames(),
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func FromDataModelSlice(users []*userDatamodel.User) []*User {
	result := make([]*User, len(users))
	for i, u := range users {
		result[i] = FromDataModel(u)
	}
	return result
}
