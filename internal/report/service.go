package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/frahmantamala/garment-erp/internal"
	"github.com/frahmantamala/garment-erp/internal/cashbook"
	"github.com/frahmantamala/garment-erp/internal/production"
	"github.com/jmoiron/sqlx"
)

const productionSummaryQuery = `
SELECT department_code AS department,
       COUNT(*) AS entries,
       CAST(COALESCE(SUM(target_qty), 0) AS BIGINT) AS target_qty,
       CAST(COALESCE(SUM(produced_qty), 0) AS BIGINT) AS produced_qty,
       CAST(COALESCE(SUM(rejected_qty), 0) AS BIGINT) AS rejected_qty
FROM production_entries
%s
GROUP BY department_code
ORDER BY department_code`

const cashbookSummaryQuery = `
SELECT head,
       CAST(COALESCE(SUM(CASE WHEN entry_type = ? THEN amount ELSE 0 END), 0) AS BIGINT) AS cash_in,
       CAST(COALESCE(SUM(CASE WHEN entry_type = ? THEN amount ELSE 0 END), 0) AS BIGINT) AS cash_out
FROM cashbook_entries
%s
GROUP BY head
ORDER BY head`

type Service struct {
	db     *sqlx.DB
	logger *slog.Logger
}

func NewService(db *sqlx.DB, logger *slog.Logger) *Service {
	return &Service{db: db, logger: logger}
}

func (s *Service) ProductionSummary(ctx context.Context, r Range) (*ProductionSummary, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	where, args := r.where()
	var rows []*DepartmentSummary
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(fmt.Sprintf(productionSummaryQuery, where)), args...); err != nil {
		s.logger.ErrorContext(ctx, "failed to query production summary", "error", err)
		return nil, fmt.Errorf("failed to build production summary: %w", err)
	}

	summary := &ProductionSummary{Departments: rows}
	summary.From, summary.To = r.labels()
	summary.Total.Department = "total"
	for _, row := range rows {
		row.Efficiency = production.Efficiency(row.ProducedQty, row.TargetQty)
		row.RejectRate = production.RejectRate(row.RejectedQty, row.ProducedQty)
		summary.Total.Entries += row.Entries
		summary.Total.TargetQty += row.TargetQty
		summary.Total.ProducedQty += row.ProducedQty
		summary.Total.RejectedQty += row.RejectedQty
	}
	summary.Total.Efficiency = production.Efficiency(summary.Total.ProducedQty, summary.Total.TargetQty)
	summary.Total.RejectRate = production.RejectRate(summary.Total.RejectedQty, summary.Total.ProducedQty)
	if summary.Departments == nil {
		summary.Departments = []*DepartmentSummary{}
	}
	return summary, nil
}

func (s *Service) CashbookSummary(ctx context.Context, r Range) (*CashbookSummary, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	where, args := r.where()
	args = append([]interface{}{cashbook.TypeCashIn, cashbook.TypeCashOut}, args...)
	var rows []*HeadSummary
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(fmt.Sprintf(cashbookSummaryQuery, where)), args...); err != nil {
		s.logger.ErrorContext(ctx, "failed to query cashbook summary", "error", err)
		return nil, fmt.Errorf("failed to build cashbook summary: %w", err)
	}

	summary := &CashbookSummary{Heads: rows}
	summary.From, summary.To = r.labels()
	summary.Total.Head = "total"
	for _, row := range rows {
		row.Net = row.CashIn - row.CashOut
		summary.Total.CashIn += row.CashIn
		summary.Total.CashOut += row.CashOut
	}
	summary.Total.Net = summary.Total.CashIn - summary.Total.CashOut
	if summary.Heads == nil {
		summary.Heads = []*HeadSummary{}
	}
	return summary, nil
}

func (r Range) validate() error {
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return internal.NewValidationFieldError("to", "to must not be before from", internal.ErrCodeInvalidDate)
	}
	return nil
}

func (r Range) where() (string, []interface{}) {
	var (
		clauses []string
		args    []interface{}
	)
	if r.From != nil {
		clauses = append(clauses, "entry_date >= ?")
		args = append(args, r.From.UTC())
	}
	if r.To != nil {
		clauses = append(clauses, "entry_date <= ?")
		args = append(args, r.To.UTC())
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func (r Range) labels() (string, string) {
	var from, to string
	if r.From != nil {
		from = r.From.UTC().Format(production.DateLayout)
	}
	if r.To != nil {
		to = r.To.UTC().Format(production.DateLayout)
	}
	return from, to
}
