package auth

import (
	"strings"

	"github.com/frahmantamala/garment-erp/internal"
)

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() error {
	if strings.TrimSpace(d.Email) == "" {
		return internal.NewValidationFieldError("email", "email is required", internal.ErrCodeValidationFailed)
	}
	if d.Password == "" {
		return internal.NewValidationFieldError("password", "password is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type LoginResponse struct {
	User      *User  `json:"user"`
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// MeResponse describes the caller together with everything it may do.
type MeResponse struct {
	User                 *User    `json:"user"`
	EffectivePermissions []string `json:"effective_permissions"`
	AccessiblePages      []string `json:"accessible_pages"`
	ReadOnly             bool     `json:"read_only"`
}

type PageAccessResponse struct {
	Page    string `json:"page"`
	Allowed bool   `json:"allowed"`
}

type LogoutAllResponse struct {
	Message string `json:"message"`
}
