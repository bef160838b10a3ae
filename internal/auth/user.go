package auth

import (
	"time"

	userDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/user"
	"github.com/frahmantamala/garment-erp/internal/rbac"
)

// User is the authenticated caller: the account fields plus its explicit
// permission grants and the token it presented.
type User struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        rbac.Role  `json:"role"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Permissions []string   `json:"permissions"`
	Token       string     `json:"token,omitempty"`
}

func (u *User) SubjectRole() rbac.Role {
	return u.Role
}

// GrantedPermissions skips grant names that are no longer in the catalog.
func (u *User) GrantedPermissions() []rbac.Permission {
	out := make([]rbac.Permission, 0, len(u.Permissions))
	for _, name := range u.Permissions {
		if p := rbac.Permission(name); p.IsValid() {
			out = append(out, p)
		}
	}
	return out
}

func FromDataModel(dm *userDatamodel.User, token string) *User {
	if dm == nil {
		return nil
	}
	return &User{
		ID:          dm.ID,
		Name:        dm.Name,
		Email:       dm.Email,
		Role:        rbac.Role(dm.Role),
		IsActive:    dm.IsActive,
		LastLoginAt: dm.LastLoginAt,
		CreatedAt:   dm.CreatedAt,
		UpdatedAt:   dm.UpdatedAt,
		Permissions: dm.PermissionNames(),
		Token:       token,
	}
}
