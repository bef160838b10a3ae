package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/garment-erp/internal/auth"
	"github.com/frahmantamala/garment-erp/internal/core/events"
	userDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/user"
	"github.com/frahmantamala/garment-erp/internal/rbac"
	"github.com/frahmantamala/garment-erp/pkg/logger"
	"github.com/google/uuid"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Repository is the persistence behind user administration.
type Repository interface {
	List(ctx context.Context, filter ListFilter) ([]*userDatamodel.User, int64, error)
	GetByID(ctx context.Context, id string) (*userDatamodel.User, error)
	EmailExists(ctx context.Context, email, excludeID string) (bool, error)
	Create(ctx context.Context, u *userDatamodel.User) error
	UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error
	EnsurePermission(ctx context.Context, name, description string) (*userDatamodel.Permission, error)
	GrantPermission(ctx context.Context, grant *userDatamodel.UserPermission) error
	RevokePermission(ctx context.Context, userID, permission string) (int64, error)
}

type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePassword(password, hash string) bool
}

type SessionRevoker interface {
	RevokeUserSessions(ctx context.Context, userID string) (int64, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo              Repository
	passwords         PasswordHasher
	sessions          SessionRevoker
	table             *rbac.Table
	publisher         EventPublisher
	logger            *slog.Logger
	allowRegistration bool
	newID             func() string
}

type Option func(*Service)

func WithPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithSelfRegistration(enabled bool) Option {
	return func(s *Service) { s.allowRegistration = enabled }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func NewService(repo Repository, passwords PasswordHasher, sessions SessionRevoker, table *rbac.Table, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		passwords: passwords,
		sessions:  sessions,
		table:     table,
		logger:    logger.LoggerWrapper(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.table == nil {
		s.table = rbac.DefaultTable()
	}
	return s
}

func (s *Service) ListUsers(ctx context.Context, filter ListFilter) (*UserList, error) {
	if filter.Limit <= 0 || filter.Limit > MaxListLimit {
		filter.Limit = DefaultListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Role != "" && !filter.Role.IsValid() {
		return nil, ErrInvalidRole
	}

	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list users", "error", err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return &UserList{
		Users:  FromDataModelSlice(users),
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	dm, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return FromDataModel(dm), nil
}

// CreateUser provisions an account on behalf of an administrator.
func (s *Service) CreateUser(ctx context.Context, actor *auth.User, dto CreateUserDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	role, err := rbac.ParseRole(dto.Role)
	if err != nil {
		return nil, ErrInvalidRole
	}
	if role == rbac.RoleSuperAdmin && actor.Role != rbac.RoleSuperAdmin {
		return nil, ErrSuperAdminOnly
	}

	u, err := s.create(ctx, dto.Email, dto.Name, dto.Password, role)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user created", "user_id", u.ID, "role", u.Role, "created_by", actor.ID)
	return u, nil
}

// Register creates a USER account for the caller when self registration is on.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (*User, error) {
	if !s.allowRegistration {
		return nil, ErrRegistrationClosed
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	u, err := s.create(ctx, dto.Email, dto.Name, dto.Password, rbac.RoleUser)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, actor *auth.User, id string, dto UpdateProfileDTO) (*User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}
	target, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if dto.Name != nil {
		fields["name"] = strings.TrimSpace(*dto.Name)
	}
	if dto.Email != nil {
		email := normalizeEmail(*dto.Email)
		if err := s.ensureEmailFree(ctx, email, target.ID); err != nil {
			return nil, err
		}
		fields["email"] = email
	}

	if err := s.update(ctx, target.ID, fields); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, target.ID)
}

// SetRole moves the user to another role and announces the change.
func (s *Service) SetRole(ctx context.Context, actor *auth.User, id, roleName string) (*User, error) {
	role, err := rbac.ParseRole(roleName)
	if err != nil {
		return nil, ErrInvalidRole
	}
	if actor.ID == id {
		return nil, ErrSelfLockout
	}
	target, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if role == rbac.RoleSuperAdmin && actor.Role != rbac.RoleSuperAdmin {
		return nil, ErrSuperAdminOnly
	}

	oldRole := target.Role
	if oldRole == string(role) {
		return FromDataModel(target), nil
	}
	if err := s.update(ctx, target.ID, map[string]interface{}{"role": string(role)}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user role changed", "user_id", target.ID, "old_role", oldRole, "new_role", role, "changed_by", actor.ID)
	s.publish(ctx, events.NewUserRoleChangedEvent(target.ID, actor.ID, oldRole, string(role)))
	return s.GetUser(ctx, target.ID)
}

// SetActive toggles the account and announces deactivations.
func (s *Service) SetActive(ctx context.Context, actor *auth.User, id string, active bool) (*User, error) {
	if actor.ID == id && !active {
		return nil, ErrSelfLockout
	}
	target, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if target.IsActive == active {
		return FromDataModel(target), nil
	}
	if err := s.update(ctx, target.ID, map[string]interface{}{"is_active": active}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user activation changed", "user_id", target.ID, "active", active, "changed_by", actor.ID)
	if !active {
		s.publish(ctx, events.NewUserDeactivatedEvent(target.ID, actor.ID))
	}
	return s.GetUser(ctx, target.ID)
}

func (s *Service) RevokeSessions(ctx context.Context, actor *auth.User, id string) (int64, error) {
	target, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return 0, err
	}
	n, err := s.sessions.RevokeUserSessions(ctx, target.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke sessions", "user_id", target.ID, "error", err)
		return 0, err
	}
	s.logger.InfoContext(ctx, "sessions revoked by admin", "user_id", target.ID, "count", n, "revoked_by", actor.ID)
	return n, nil
}

// GrantPermission adds an explicit permission on top of the user's role. Granting twice is a no-op.
func (s *Service) GrantPermission(ctx context.Context, actor *auth.User, id, permissionName string) (*User, error) {
	perm, err := rbac.ParsePermission(permissionName)
	if err != nil {
		return nil, ErrInvalidPermission
	}
	target, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.EnsurePermission(ctx, string(perm), perm.Description())
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load permission", "permission", perm, "error", err)
		return nil, fmt.Errorf("failed to load permission: %w", err)
	}

	grantedBy := actor.ID
	err = s.repo.GrantPermission(ctx, &userDatamodel.UserPermission{
		UserID:       target.ID,
		PermissionID: p.ID,
		GrantedBy:    &grantedBy,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to grant permission", "user_id", target.ID, "permission", perm, "error", err)
		return nil, fmt.Errorf("failed to grant permission: %w", err)
	}

	s.logger.InfoContext(ctx, "permission granted", "user_id", target.ID, "permission", perm, "granted_by", actor.ID)
	return s.GetUser(ctx, target.ID)
}

func (s *Service) RevokePermission(ctx context.Context, actor *auth.User, id, permissionName string) (*User, error) {
	perm, err := rbac.ParsePermission(permissionName)
	if err != nil {
		return nil, ErrInvalidPermission
	}
	target, err := s.loadManaged(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	n, err := s.repo.RevokePermission(ctx, target.ID, string(perm))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke permission", "user_id", target.ID, "permission", perm, "error", err)
		return nil, fmt.Errorf("failed to revoke permission: %w", err)
	}

	s.logger.InfoContext(ctx, "permission revoked", "user_id", target.ID, "permission", perm, "removed", n, "revoked_by", actor.ID)
	return s.GetUser(ctx, target.ID)
}

// SyncPermissions makes sure every known permission flag has a catalog row.
func (s *Service) SyncPermissions(ctx context.Context) (int, error) {
	perms := rbac.AllPermissions()
	for _, perm := range perms {
		if _, err := s.repo.EnsurePermission(ctx, string(perm), perm.Description()); err != nil {
			s.logger.ErrorContext(ctx, "failed to sync permission", "permission", perm, "error", err)
			return 0, fmt.Errorf("failed to sync permission %s: %w", perm, err)
		}
	}
	return len(perms), nil
}

// ChangePassword verifies the caller's current password before replacing it.
func (s *Service) ChangePassword(ctx context.Context, actor *auth.User, dto ChangePasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}
	current, err := s.load(ctx, actor.ID)
	if err != nil {
		return err
	}
	if !s.passwords.ComparePassword(dto.CurrentPassword, current.PasswordHash) {
		s.logger.WarnContext(ctx, "password change rejected", "user_id", actor.ID)
		return ErrWrongPassword
	}

	hash, err := s.passwords.HashPassword(dto.NewPassword)
	if err != nil {
		return err
	}
	if err := s.update(ctx, current.ID, map[string]interface{}{"password_hash": hash}); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "password changed", "user_id", current.ID)
	s.publish(ctx, events.NewUserPasswordChangedEvent(current.ID, actor.ID))
	return nil
}

// Roles describes every role as configured in the active table.
func (s *Service) Roles() []RoleEntry {
	roles := rbac.AllRoles()
	out := make([]RoleEntry, 0, len(roles))
	for _, role := range roles {
		perms := s.table.RolePermissions(role)
		names := make([]string, len(perms))
		for i, p := range perms {
			names[i] = string(p)
		}
		pages := s.table.AccessiblePages(roleSubject(role))
		if pages == nil {
			pages = []string{}
		}
		out = append(out, RoleEntry{
			Role:        role,
			Permissions: names,
			Pages:       pages,
			ReadOnly:    s.table.IsReadOnlyRole(role),
		})
	}
	return out
}

func (s *Service) create(ctx context.Context, email, name, password string, role rbac.Role) (*User, error) {
	email = normalizeEmail(email)
	if err := s.ensureEmailFree(ctx, email, ""); err != nil {
		return nil, err
	}

	hash, err := s.passwords.HashPassword(password)
	if err != nil {
		return nil, err
	}

	dm := &userDatamodel.User{
		ID:           s.newID(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         string(role),
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, dm); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		s.logger.ErrorContext(ctx, "failed to create user", "email", email, "error", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return FromDataModel(dm), nil
}

func (s *Service) ensureEmailFree(ctx context.Context, email, excludeID string) error {
	taken, err := s.repo.EmailExists(ctx, email, excludeID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to check email", "error", err)
		return fmt.Errorf("failed to check email: %w", err)
	}
	if taken {
		return ErrEmailTaken
	}
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*userDatamodel.User, error) {
	dm, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.ErrorContext(ctx, "failed to get user", "user_id", id, "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return dm, nil
}

// loadManaged loads a user the actor is allowed to administer.
func (s *Service) loadManaged(ctx context.Context, actor *auth.User, id string) (*userDatamodel.User, error) {
	target, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if target.Role == string(rbac.RoleSuperAdmin) && actor.Role != rbac.RoleSuperAdmin {
		s.logger.WarnContext(ctx, "super admin change denied", "user_id", target.ID, "actor_id", actor.ID)
		return nil, ErrSuperAdminOnly
	}
	return target, nil
}

func (s *Service) update(ctx context.Context, id string, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	fields["updated_at"] = time.Now().UTC()
	if err := s.repo.UpdateFields(ctx, id, fields); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUserNotFound
		}
		if errors.Is(err, ErrEmailTaken) {
			return ErrEmailTaken
		}
		s.logger.ErrorContext(ctx, "failed to update user", "user_id", id, "error", err)
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish event", "event_type", event.EventType(), "error", err)
	}
}

type roleSubject rbac.Role

func (r roleSubject) SubjectRole() rbac.Role                { return rbac.Role(r) }
func (r roleSubject) GrantedPermissions() []rbac.Permission { return nil }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
