package postgres

import (
	"context"
	"errors"

	departmentDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/department"
	"github.com/frahmantamala/garment-erp/internal/department"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DepartmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) department.RepositoryAPI {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) GetAll(ctx context.Context) ([]*departmentDatamodel.Department, error) {
	var departments []*departmentDatamodel.Department
	err := r.db.WithContext(ctx).Order("code ASC").Find(&departments).Error
	return departments, err
}

// GetByCode returns nil, nil when the code is unknown.
func (r *DepartmentRepository) GetByCode(ctx context.Context, code string) (*departmentDatamodel.Department, error) {
	var d departmentDatamodel.Department
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *DepartmentRepository) Create(ctx context.Context, d *departmentDatamodel.Department) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DepartmentRepository) CreateIfMissing(ctx context.Context, d *departmentDatamodel.Department) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
		Create(d)
	return res.RowsAffected > 0, res.Error
}

func (r *DepartmentRepository) SetActive(ctx context.Context, code string, active bool) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&departmentDatamodel.Department{}).
		Where("code = ?", code).
		Update("is_active", active)
	return res.RowsAffected > 0, res.Error
}
