package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/frahmantamala/garment-erp/internal"
	userDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/user"
	"github.com/frahmantamala/garment-erp/internal/rbac"
	"github.com/golang-jwt/jwt/v5"
)

const MinPasswordLength = 6

// Claims carried by every issued token.
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenGenerator signs and verifies tokens.
type TokenGenerator interface {
	GenerateToken(userID string, role rbac.Role) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Repository is the persistence the auth service needs for users and sessions.
type Repository interface {
	FindUserByEmail(ctx context.Context, email string) (*userDatamodel.User, error)
	FindUserByID(ctx context.Context, id string) (*userDatamodel.User, error)
	TouchLastLogin(ctx context.Context, userID string, at time.Time) error
	UpsertSession(ctx context.Context, session *userDatamodel.Session) error
	FindSession(ctx context.Context, token string) (*userDatamodel.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteUserSessions(ctx context.Context, userID string) (int64, error)
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// LoginLimiter throttles repeated login attempts for one account.
type LoginLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// ServiceAPI is what HTTP handlers and middleware use.
type ServiceAPI interface {
	AuthenticateUser(ctx context.Context, email, password string) (*User, error)
	GetCurrentUser(r *http.Request) (*User, error)
	DeleteSession(ctx context.Context, token string)
	DeleteAllUserSessions(ctx context.Context, userID string)
	ExtractToken(r *http.Request) string
	CookieName() string
	SessionTTL() time.Duration
	Table() *rbac.Table
}

var (
	ErrPasswordTooShort     = internal.NewValidationError("password must be at least 6 characters", internal.ErrCodePasswordTooShort)
	ErrTokenSubjectRequired = internal.NewValidationError("user id and role are required", internal.ErrCodeValidationFailed)
	ErrInvalidToken         = internal.NewUnauthorizedError("invalid token", internal.ErrCodeInvalidToken)
	ErrTokenExpired         = internal.NewUnauthorizedError("token expired", internal.ErrCodeTokenExpired)
	ErrInvalidCredentials   = internal.NewUnauthorizedError("invalid email or password", internal.ErrCodeInvalidCredentials)
	ErrTooManyAttempts      = internal.NewTooManyRequestsError("too many login attempts, try again later", internal.ErrCodeTooManyAttempts)
	ErrUnauthenticated      = internal.ErrUnauthenticated

	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

type ctxKey string

const ContextUserKey ctxKey = "user"

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ContextUserKey).(*User)
	return u, ok && u != nil
}

func ContextWithUser(ctx context.Context, u *User) context.Context {
	ctx = internal.ContextWithPrincipal(ctx, u.ID, string(u.Role))
	return context.WithValue(ctx, ContextUserKey, u)
}
