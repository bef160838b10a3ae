package production

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/frahmantamala/garment-erp/internal/auth"
	productionDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/production"
	"github.com/frahmantamala/garment-erp/internal/core/common/validation"
	"github.com/frahmantamala/garment-erp/internal/department"
	"github.com/frahmantamala/garment-erp/internal/rbac"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

type RepositoryAPI interface {
	Create(ctx context.Context, e *productionDatamodel.Entry) error
	GetByID(ctx context.Context, id int64) (*productionDatamodel.Entry, error)
	List(ctx context.Context, filter Filter) ([]*productionDatamodel.Entry, int64, error)
	Update(ctx context.Context, e *productionDatamodel.Entry) error
	Delete(ctx context.Context, id int64) error
}

type DepartmentValidator interface {
	IsValidDepartment(ctx context.Context, code string) bool
}

type Service struct {
	repo        RepositoryAPI
	departments DepartmentValidator
	table       *rbac.Table
	logger      *slog.Logger
	now         func() time.Time
}

func NewService(repo RepositoryAPI, departments DepartmentValidator, table *rbac.Table, logger *slog.Logger) *Service {
	if table == nil {
		table = rbac.DefaultTable()
	}
	return &Service{
		repo:        repo,
		departments: departments,
		table:       table,
		logger:      logger,
		now:         time.Now,
	}
}

// WithClock replaces the clock used for the future-date check.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) CreateEntry(ctx context.Context, actor *auth.User, dto CreateEntryDTO) (*Entry, error) {
	code := department.NormalizeCode(dto.Department)
	if code != "" && !s.allowed(actor, code, ActionCreate) {
		s.logger.WarnContext(ctx, "create production entry denied", "user_id", actor.ID, "department", code)
		return nil, ErrForbidden
	}

	date, err := dto.Validate(s.now())
	if err != nil {
		return nil, err
	}
	if !s.departments.IsValidDepartment(ctx, code) {
		return nil, ErrInvalidDepartment
	}

	row := &productionDatamodel.Entry{
		EntryDate:      date,
		DepartmentCode: code,
		Line:           strings.TrimSpace(dto.Line),
		Style:          strings.TrimSpace(dto.Style),
		OrderNumber:    strings.TrimSpace(dto.OrderNumber),
		TargetQty:      dto.TargetQty,
		ProducedQty:    dto.ProducedQty,
		RejectedQty:    dto.RejectedQty,
		Remarks:        strings.TrimSpace(dto.Remarks),
		CreatedBy:      actor.ID,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.ErrorContext(ctx, "failed to create production entry", "user_id", actor.ID, "error", err)
		return nil, fmt.Errorf("failed to create production entry: %w", err)
	}

	s.logger.InfoContext(ctx, "production entry created",
		"entry_id", row.ID,
		"department", code,
		"produced", row.ProducedQty,
		"user_id", actor.ID)
	return FromDataModel(row), nil
}

func (s *Service) GetEntry(ctx context.Context, actor *auth.User, id int64) (*Entry, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.allowed(actor, row.DepartmentCode, ActionRead) {
		s.logger.WarnContext(ctx, "read production entry denied", "user_id", actor.ID, "entry_id", id)
		return nil, ErrForbidden
	}
	return FromDataModel(row), nil
}

// ListEntries returns the entries the actor may read. Without a department
// filter, departments outside the actor's permission families are left out.
func (s *Service) ListEntries(ctx context.Context, actor *auth.User, filter Filter) (*EntryList, error) {
	if filter.Limit <= 0 || filter.Limit > MaxListLimit {
		filter.Limit = DefaultListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Department = department.NormalizeCode(filter.Department)

	if filter.Department != "" {
		if !s.allowed(actor, filter.Department, ActionRead) {
			return nil, ErrForbidden
		}
	} else {
		readsProduction := s.table.HasPermission(actor, rbac.ReadProduction)
		readsCutting := s.table.HasPermission(actor, rbac.ReadCutting)
		switch {
		case !readsProduction && !readsCutting:
			return nil, ErrForbidden
		case !readsCutting:
			filter.ExcludeDepartments = append(filter.ExcludeDepartments, department.Cutting)
		case !readsProduction:
			filter.Department = department.Cutting
		}
	}

	rows, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list production entries", "user_id", actor.ID, "error", err)
		return nil, fmt.Errorf("failed to list production entries: %w", err)
	}

	return &EntryList{
		Entries: FromDataModelSlice(rows),
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

// UpdateEntry applies a partial update. Moving an entry between departments
// needs update rights on both.
func (s *Service) UpdateEntry(ctx context.Context, actor *auth.User, id int64, dto UpdateEntryDTO) (*Entry, error) {
	row, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.allowed(actor, row.DepartmentCode, ActionUpdate) {
		s.logger.WarnContext(ctx, "update production entry denied", "user_id", actor.ID, "entry_id", id)
		return nil, ErrForbidden
	}

	if dto.Department != nil {
		code := department.NormalizeCode(*dto.Department)
		if code != row.DepartmentCode {
			if !s.allowed(actor, code, ActionUpdate) {
				return nil, ErrForbidden
			}
			if !s.departments.IsValidDepartment(ctx, code) {
				return nil, ErrInvalidDepartment
			}
			row.DepartmentCode = code
		}
	}
	if dto.Date != nil {
		date, appErr := ParseDate(*dto.Date)
		if appErr != nil {
			return nil, appErr
		}
		row.EntryDate = date
	}
	if dto.Line != nil {
		row.Line = strings.TrimSpace(*dto.Line)
	}
	if dto.Style != nil {
		row.Style = strings.TrimSpace(*dto.Style)
	}
	if dto.OrderNumber != nil {
		row.OrderNumber = strings.TrimSpace(*dto.OrderNumber)
	}
	if dto.Remarks != nil {
		row.Remarks = strings.TrimSpace(*dto.Remarks)
	}
	if dto.TargetQty != nil {
		row.TargetQty = *dto.TargetQty
	}
	if dto.ProducedQty != nil {
		row.ProducedQty = *dto.ProducedQty
	}
	if dto.RejectedQty != nil {
		row.RejectedQty = *dto.RejectedQty
	}

	v := validation.NewValidator()
	quantityRules(v, row.TargetQty, row.ProducedQty, row.RejectedQty)
	v.Field("date", row.EntryDate).NotAfter(endOfDay(s.now()))
	if err := v.Err(); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, row); err != nil {
		s.logger.ErrorContext(ctx, "failed to update production entry", "entry_id", id, "error", err)
		return nil, fmt.Errorf("failed to update production entry: %w", err)
	}

	s.logger.InfoContext(ctx, "production entry updated", "entry_id", id, "user_id", actor.ID)
	return FromDataModel(row), nil
}

func (s *Service) DeleteEntry(ctx context.Context, actor *auth.User, id int64) error {
	row, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !s.allowed(actor, row.DepartmentCode, ActionDelete) {
		s.logger.WarnContext(ctx, "delete production entry denied", "user_id", actor.ID, "entry_id", id)
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrEntryNotFound
		}
		s.logger.ErrorContext(ctx, "failed to delete production entry", "entry_id", id, "error", err)
		return fmt.Errorf("failed to delete production entry: %w", err)
	}

	s.logger.InfoContext(ctx, "production entry deleted", "entry_id", id, "user_id", actor.ID)
	return nil
}

func (s *Service) allowed(actor *auth.User, code string, action Action) bool {
	return s.table.HasPermission(actor, PermissionFor(code, action))
}

func (s *Service) load(ctx context.Context, id int64) (*productionDatamodel.Entry, error) {
	row, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrEntryNotFound
		}
		s.logger.ErrorContext(ctx, "failed to get production entry", "entry_id", id, "error", err)
		return nil, fmt.Errorf("failed to get production entry: %w", err)
	}
	return row, nil
}
