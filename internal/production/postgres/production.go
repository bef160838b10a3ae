package postgres

import (
	"context"
	"errors"

	productionDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/production"
	"github.com/frahmantamala/garment-erp/internal/production"
	"gorm.io/gorm"
)

type ProductionRepository struct {
	db *gorm.DB
}

func NewProductionRepository(db *gorm.DB) *ProductionRepository {
	return &ProductionRepository{db: db}
}

var _ production.RepositoryAPI = (*ProductionRepository)(nil)

func (r *ProductionRepository) Create(ctx context.Context, e *productionDatamodel.Entry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *ProductionRepository) GetByID(ctx context.Context, id int64) (*productionDatamodel.Entry, error) {
	var e productionDatamodel.Entry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, production.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *ProductionRepository) List(ctx context.Context, filter production.Filter) ([]*productionDatamodel.Entry, int64, error) {
	q := r.db.WithContext(ctx).Model(&productionDatamodel.Entry{})
	if filter.From != nil {
		q = q.Where("entry_date >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("entry_date <= ?", *filter.To)
	}
	if filter.Department != "" {
		q = q.Where("department_code = ?", filter.Department)
	}
	if len(filter.ExcludeDepartments) > 0 {
		q = q.Where("department_code NOT IN ?", filter.ExcludeDepartments)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*productionDatamodel.Entry
	err := q.Order("entry_date DESC").
		Order("id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *ProductionRepository) Update(ctx context.Context, e *productionDatamodel.Entry) error {
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *ProductionRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&productionDatamodel.Entry{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return production.ErrNotFound
	}
	return nil
}
