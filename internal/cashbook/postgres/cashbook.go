package postgres

import (
	"context"
	"errors"

	"github.com/frahmantamala/garment-erp/internal/cashbook"
	cashbookDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/cashbook"
	"gorm.io/gorm"
)

type CashbookRepository struct {
	db *gorm.DB
}

func NewCashbookRepository(db *gorm.DB) *CashbookRepository {
	return &CashbookRepository{db: db}
}

var _ cashbook.RepositoryAPI = (*CashbookRepository)(nil)

func (r *CashbookRepository) Create(ctx context.Context, e *cashbookDatamodel.Entry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *CashbookRepository) GetByID(ctx context.Context, id int64) (*cashbookDatamodel.Entry, error) {
	var e cashbookDatamodel.Entry
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cashbook.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

func (r *CashbookRepository) List(ctx context.Context, filter cashbook.Filter) ([]*cashbookDatamodel.Entry, int64, error) {
	q := r.scoped(ctx, filter).Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*cashbookDatamodel.Entry
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

func (r *CashbookRepository) Totals(ctx context.Context, filter cashbook.Filter) (cashbook.Totals, error) {
	var rows []struct {
		EntryType string
		Total     int64
	}
	err := r.scoped(ctx, filter).
		Select("entry_type, CAST(COALESCE(SUM(amount), 0) AS BIGINT) AS total").
		Group("entry_type").
		Scan(&rows).Error
	if err != nil {
		return cashbook.Totals{}, err
	}

	var totals cashbook.Totals
	for _, row := range rows {
		switch row.EntryType {
		case cashbook.TypeCashIn:
			totals.In = row.Total
		case cashbook.TypeCashOut:
			totals.Out = row.Total
		}
	}
	return totals, nil
}

func (r *CashbookRepository) Update(ctx context.Context, e *cashbookDatamodel.Entry) error {
	return r.db.WithContext(ctx).Save(e).Error
}

func (r *CashbookRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&cashbookDatamodel.Entry{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return cashbook.ErrNotFound
	}
	return nil
}

func (r *CashbookRepository) scoped(ctx context.Context, filter cashbook.Filter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&cashbookDatamodel.Entry{})
	if filter.From != nil {
		q = q.Where("entry_date >= ?", *filter.From)
	}
	if filter.To != nil {
		q = q.Where("entry_date <= ?", *filter.To)
	}
	if filter.Before != nil {
		q = q.Where("entry_date < ?", *filter.Before)
	}
	if filter.EntryType != "" {
		q = q.Where("entry_type = ?", filter.EntryType)
	}
	if filter.Head != "" {
		q = q.Where("LOWER(head) = LOWER(?)", filter.Head)
	}
	return q
}
