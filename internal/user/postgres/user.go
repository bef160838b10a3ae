package postgres

import (
	"context"
	"errors"
	"strings"

	userDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/user"
	"github.com/frahmantamala/garment-erp/internal/user"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository implements user.Repository using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

var _ user.Repository = (*UserRepository)(nil)

func (r *UserRepository) List(ctx context.Context, filter user.ListFilter) ([]*userDatamodel.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&userDatamodel.User{})
	if filter.Role != "" {
		q = q.Where("role = ?", string(filter.Role))
	}
	if filter.Active != nil {
		q = q.Where("is_active = ?", *filter.Active)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("(LOWER(email) LIKE ? OR LOWER(name) LIKE ?)", like, like)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []*userDatamodel.User
	err := q.Preload("Permissions.Permission").
		Order("created_at DESC").
		Order("id").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*userDatamodel.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).
		Preload("Permissions.Permission").
		Where("id = ?", id).
		First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, user.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) EmailExists(ctx context.Context, email, excludeID string) (bool, error) {
	q := r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email)))
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *UserRepository) Create(ctx context.Context, u *userDatamodel.User) error {
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(u).Error
	if isUniqueViolation(err) {
		return user.ErrEmailTaken
	}
	return err
}

func (r *UserRepository) UpdateFields(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Updates(fields)
	if isUniqueViolation(res.Error) {
		return user.ErrEmailTaken
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return user.ErrNotFound
	}
	return nil
}

// EnsurePermission returns the catalog row for name, inserting it on first use.
func (r *UserRepository) EnsurePermission(ctx context.Context, name, description string) (*userDatamodel.Permission, error) {
	db := r.db.WithContext(ctx)
	p := userDatamodel.Permission{Name: name, Description: description}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoNothing: true,
	}).Create(&p).Error
	if err != nil {
		return nil, err
	}

	var stored userDatamodel.Permission
	if err := db.Where("name = ?", name).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

func (r *UserRepository) GrantPermission(ctx context.Context, grant *userDatamodel.UserPermission) error {
	return r.db.WithContext(ctx).
		Omit("Permission").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "permission_id"}},
			DoNothing: true,
		}).
		Create(grant).Error
}

func (r *UserRepository) RevokePermission(ctx context.Context, userID, permission string) (int64, error) {
	sub := r.db.Model(&userDatamodel.Permission{}).Select("id").Where("name = ?", permission)
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND permission_id IN (?)", userID, sub).
		Delete(&userDatamodel.UserPermission{})
	return res.RowsAffected, res.Error
}

// isUniqueViolation reports a unique index failure from postgres or sqlite.
// email is the only unique column written by this repository.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
