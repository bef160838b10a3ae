package department

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	departmentDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/department"
)

type RepositoryAPI interface {
	GetAll(ctx context.Context) ([]*departmentDatamodel.Department, error)
	GetByCode(ctx context.Context, code string) (*departmentDatamodel.Department, error)
	Create(ctx context.Context, d *departmentDatamodel.Department) error
	CreateIfMissing(ctx context.Context, d *departmentDatamodel.Department) (bool, error)
	SetActive(ctx context.Context, code string, active bool) (bool, error)
}

type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// ListActive returns the active departments ordered by code.
func (s *Service) ListActive(ctx context.Context) ([]*Department, error) {
	rows, err := s.repo.GetAll(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to get departments from repository", "error", err)
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}

	departments := make([]*Department, 0, len(rows))
	for _, row := range rows {
		if row.IsActive {
			departments = append(departments, FromDataModel(row))
		}
	}
	return departments, nil
}

func (s *Service) GetByCode(ctx context.Context, code string) (*Department, error) {
	row, err := s.repo.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to get department", "code", code, "error", err)
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	if row == nil {
		return nil, ErrDepartmentNotFound
	}
	return FromDataModel(row), nil
}

// IsValidDepartment reports whether code names an active department.
// Lookup failures count as invalid.
func (s *Service) IsValidDepartment(ctx context.Context, code string) bool {
	d, err := s.GetByCode(ctx, code)
	if err != nil {
		if err != ErrDepartmentNotFound {
			s.logger.WarnContext(ctx, "error checking department validity", "code", code, "error", err)
		}
		return false
	}
	return d.IsActive
}

func (s *Service) Create(ctx context.Context, dto CreateDepartmentDTO) (*Department, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	code := NormalizeCode(dto.Code)
	existing, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to get department", "code", code, "error", err)
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	if existing != nil {
		return nil, ErrDepartmentExists
	}

	row := ToDataModel(&Department{
		Code:        code,
		Name:        strings.TrimSpace(dto.Name),
		Description: strings.TrimSpace(dto.Description),
		IsActive:    true,
	})
	if err := s.repo.Create(ctx, row); err != nil {
		s.logger.ErrorContext(ctx, "failed to create department", "code", code, "error", err)
		return nil, fmt.Errorf("failed to create department: %w", err)
	}

	s.logger.InfoContext(ctx, "department created", "code", code)
	return FromDataModel(row), nil
}

// Deactivate hides the department from pickers and new entries; history stays intact.
func (s *Service) Deactivate(ctx context.Context, code string) error {
	found, err := s.repo.SetActive(ctx, NormalizeCode(code), false)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to deactivate department", "code", code, "error", err)
		return fmt.Errorf("failed to deactivate department: %w", err)
	}
	if !found {
		return ErrDepartmentNotFound
	}
	s.logger.InfoContext(ctx, "department deactivated", "code", code)
	return nil
}

// EnsureDefaults inserts any missing default department and reports how many were added.
func (s *Service) EnsureDefaults(ctx context.Context) (int, error) {
	added := 0
	for _, d := range DefaultDepartments() {
		created, err := s.repo.CreateIfMissing(ctx, ToDataModel(d))
		if err != nil {
			return added, fmt.Errorf("failed to seed department %s: %w", d.Code, err)
		}
		if created {
			added++
		}
	}
	return added, nil
}
