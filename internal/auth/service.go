package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	userDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/user"
	"github.com/frahmantamala/garment-erp/internal/rbac"
	"github.com/frahmantamala/garment-erp/internal/transport"
	"github.com/frahmantamala/garment-erp/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const DefaultBCryptCost = 12

// Service owns credential checks plus the token and session lifecycle.
type Service struct {
	repo       Repository
	tokens     TokenGenerator
	table      *rbac.Table
	limiter    LoginLimiter
	logger     *slog.Logger
	bcryptCost int
	sessionTTL time.Duration
	cookieName string
	now        func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLoginLimiter(l LoginLimiter) Option {
	return func(s *Service) { s.limiter = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithBCryptCost ignores costs bcrypt itself would reject.
func WithBCryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

func WithCookieName(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.cookieName = name
		}
	}
}

// NewService creates a new auth service
func NewService(repo Repository, tokens TokenGenerator, table *rbac.Table, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		tokens:     tokens,
		table:      table,
		logger:     logger.LoggerWrapper(),
		bcryptCost: DefaultBCryptCost,
		sessionTTL: DefaultTokenTTL,
		cookieName: transport.AuthCookieName,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.table == nil {
		s.table = rbac.DefaultTable()
	}
	return s
}

func (s *Service) Table() *rbac.Table        { return s.table }
func (s *Service) CookieName() string        { return s.cookieName }
func (s *Service) SessionTTL() time.Duration { return s.sessionTTL }

// HashPassword creates a bcrypt hash of the password
func (s *Service) HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// ComparePassword reports whether password matches hash. Empty inputs never match.
func (s *Service) ComparePassword(password, hash string) bool {
	if password == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (s *Service) GenerateToken(userID string, role rbac.Role) (string, error) {
	if userID == "" || role == "" {
		return "", ErrTokenSubjectRequired
	}
	return s.tokens.GenerateToken(userID, role)
}

// ValidateToken returns ErrInvalidToken or ErrTokenExpired on any failure.
func (s *Service) ValidateToken(token string) (*Claims, error) {
	return s.tokens.ValidateToken(token)
}

// AuthenticateUser verifies credentials, then issues a token backed by a new session.
// Unknown, inactive and wrong-password accounts all yield ErrInvalidCredentials.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, email)
		if err != nil {
			s.logger.WarnContext(ctx, "login limiter unavailable", "error", err)
		} else if !allowed {
			s.logger.WarnContext(ctx, "login throttled", "email", email)
			return nil, ErrTooManyAttempts
		}
	}

	dm, err := s.repo.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// keep response time independent of whether the account exists
			s.compareDummy(password)
			return nil, ErrInvalidCredentials
		}
		s.logger.ErrorContext(ctx, "failed to find user by email", "error", err)
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	passwordOK := s.ComparePassword(password, dm.PasswordHash)
	if !dm.IsActive || !passwordOK {
		s.logger.InfoContext(ctx, "login rejected", "user_id", dm.ID, "active", dm.IsActive)
		return nil, ErrInvalidCredentials
	}

	token, err := s.GenerateToken(dm.ID, rbac.Role(dm.Role))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to generate token", "user_id", dm.ID, "error", err)
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.CreateOrUpdateSession(ctx, dm.ID, token); err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.repo.TouchLastLogin(ctx, dm.ID, now); err != nil {
		s.logger.ErrorContext(ctx, "failed to update last login", "user_id", dm.ID, "error", err)
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}
	dm.LastLoginAt = &now

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, email); err != nil {
			s.logger.WarnContext(ctx, "failed to reset login limiter", "error", err)
		}
	}

	s.logger.InfoContext(ctx, "user authenticated", "user_id", dm.ID, "role", dm.Role)
	return FromDataModel(dm, token), nil
}

// CreateOrUpdateSession stores token → userID with a fresh expiry.
func (s *Service) CreateOrUpdateSession(ctx context.Context, userID, token string) error {
	session := &userDatamodel.Session{
		Token:     token,
		UserID:    userID,
		ExpiresAt: s.now().Add(s.sessionTTL),
	}
	if err := s.repo.UpsertSession(ctx, session); err != nil {
		s.logger.ErrorContext(ctx, "failed to create session", "user_id", userID, "error", err)
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// ValidateSession resolves a token to its active owner. Expired sessions are
// removed on sight.
func (s *Service) ValidateSession(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	session, err := s.repo.FindSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.ErrorContext(ctx, "failed to find session", "token_prefix", tokenPrefix(token), "error", err)
		return nil, fmt.Errorf("failed to find session: %w", err)
	}

	if !session.ExpiresAt.After(s.now()) {
		s.DeleteSession(ctx, token)
		return nil, ErrSessionExpired
	}

	dm, err := s.repo.FindUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.DeleteSession(ctx, token)
			return nil, ErrSessionNotFound
		}
		s.logger.ErrorContext(ctx, "failed to load session owner", "user_id", session.UserID, "error", err)
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !dm.IsActive {
		s.DeleteSession(ctx, token)
		return nil, ErrSessionNotFound
	}

	return FromDataModel(dm, token), nil
}

// DeleteSession is best-effort: failures are logged, never returned.
func (s *Service) DeleteSession(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.repo.DeleteSession(ctx, token); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete session", "token_prefix", tokenPrefix(token), "error", err)
	}
}

// DeleteAllUserSessions is best-effort: failures are logged, never returned.
func (s *Service) DeleteAllUserSessions(ctx context.Context, userID string) {
	if _, err := s.RevokeUserSessions(ctx, userID); err != nil {
		s.logger.ErrorContext(ctx, "failed to delete user sessions", "user_id", userID, "error", err)
	}
}

// RevokeUserSessions deletes every session of the user and reports how many were removed.
func (s *Service) RevokeUserSessions(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, ErrTokenSubjectRequired
	}
	n, err := s.repo.DeleteUserSessions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user sessions: %w", err)
	}
	s.logger.InfoContext(ctx, "user sessions revoked", "user_id", userID, "count", n)
	return n, nil
}

func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpiredSessions(ctx, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to purge expired sessions", "error", err)
		return 0, fmt.Errorf("failed to purge expired sessions: %w", err)
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "expired sessions purged", "count", n)
	}
	return n, nil
}

func (s *Service) ExtractToken(r *http.Request) string {
	return transport.ExtractToken(r, s.cookieName)
}

// GetCurrentUser resolves the request's token to a user. Any token or session
// problem yields ErrUnauthenticated; persistence failures are returned as is.
func (s *Service) GetCurrentUser(r *http.Request) (*User, error) {
	ctx := r.Context()
	token := s.ExtractToken(r)
	if token == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := s.ValidateToken(token)
	if err != nil {
		s.logger.DebugContext(ctx, "token rejected", "token_prefix", tokenPrefix(token), "error", err)
		return nil, ErrUnauthenticated
	}

	u, err := s.ValidateSession(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrSessionExpired) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	if u.ID != claims.UserID {
		s.logger.WarnContext(ctx, "token subject does not match session owner", "user_id", u.ID)
		return nil, ErrUnauthenticated
	}

	return u, nil
}

func (s *Service) compareDummy(password string) {
	s.dummyOnce.Do(func() {
		hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), s.bcryptCost)
		if err == nil {
			s.dummyHash = hash
		}
	})
	if s.dummyHash != nil {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func tokenPrefix(token string) string {
	if len(token) > 20 {
		return token[:20]
	}
	return token
}
