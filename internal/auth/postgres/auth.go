package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/frahmantamala/garment-erp/internal/auth"
	userDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/user"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db: db,
	}
}

var _ auth.Repository = (*Repository)(nil)

func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.withPermissions(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) FindUserByID(ctx context.Context, id string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.withPermissions(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *Repository) TouchLastLogin(ctx context.Context, userID string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ?", userID).
		Update("last_login_at", at.UTC()).Error
}

// UpsertSession inserts the session or renews the expiry of an existing token.
func (r *Repository) UpsertSession(ctx context.Context, session *userDatamodel.Session) error {
	session.ExpiresAt = session.ExpiresAt.UTC()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "expires_at", "updated_at"}),
		}).
		Create(session).Error
}

func (r *Repository) FindSession(ctx context.Context, token string) (*userDatamodel.Session, error) {
	var s userDatamodel.Session
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repository) DeleteSession(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Where("token = ?", token).Delete(&userDatamodel.Session{}).Error
}

func (r *Repository) DeleteUserSessions(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&userDatamodel.Session{})
	return res.RowsAffected, res.Error
}

func (r *Repository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&userDatamodel.Session{})
	return res.RowsAffected, res.Error
}

func (r *Repository) withPermissions(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Permissions.Permission")
}
