package user

import (
	"github.com/frahmantamala/garment-erp/internal"
	"github.com/frahmantamala/garment-erp/internal/core/common/validation"
)

const minPasswordLength = 6

type CreateUserDTO struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (d CreateUserDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().MaxLength(255).Email()
	v.Field("name", d.Name).Required().MaxLength(255)
	v.Field("password", d.Password).Required().MinLength(minPasswordLength)
	v.Field("role", d.Role).Required()
	return v.Err()
}

// UpdateProfileDTO changes only the fields that are present.
type UpdateProfileDTO struct {
	Email *string `json:"email,omitempty"`
	Name  *string `json:"name,omitempty"`
}

func (d UpdateProfileDTO) Validate() error {
	if d.Email == nil && d.Name == nil {
		return internal.NewValidationError("nothing to update", internal.ErrCodeValidationFailed)
	}
	v := validation.NewValidator()
	if d.Email != nil {
		v.Field("email", *d.Email).Required().MaxLength(255).Email()
	}
	if d.Name != nil {
		v.Field("name", *d.Name).Required().MaxLength(255)
	}
	return v.Err()
}

type SetRoleDTO struct {
	Role string `json:"role"`
}

type SetActiveDTO struct {
	IsActive *bool `json:"is_active"`
}

func (d SetActiveDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("is_active", d.IsActive).Required()
	return v.Err()
}

type PermissionDTO struct {
	Permission string `json:"permission"`
}

type RegisterDTO struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (d RegisterDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().MaxLength(255).Email()
	v.Field("name", d.Name).Required().MaxLength(255)
	v.Field("password", d.Password).Required().MinLength(minPasswordLength)
	return v.Err()
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (d ChangePasswordDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("current_password", d.CurrentPassword).Required()
	v.Field("new_password", d.NewPassword).Required().MinLength(minPasswordLength)
	return v.Err()
}

type RevokeSessionsResponse struct {
	UserID  string `json:"user_id"`
	Revoked int64  `json:"revoked"`
}
