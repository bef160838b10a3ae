package department

import (
	"regexp"
	"strings"
	"time"

	"github.com/frahmantamala/garment-erp/internal"
	departmentDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/department"
)

// Cutting is the only department whose entries use the *_CUTTING permissions.
const Cutting = "cutting"

type Department struct {
	ID          int64     `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

var codePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{1,31}$`)

var (
	ErrDepartmentExists   = internal.NewConflictError("department already exists", internal.ErrCodeDepartmentExists)
	ErrDepartmentNotFound = internal.NewNotFoundError("department not found", internal.ErrCodeInvalidDepartment)
)

// NormalizeCode lowercases and trims a department code.
func NormalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

// DefaultDepartments is the floor layout seeded into a fresh database.
func DefaultDepartments() []*Department {
	return []*Department{
		{Code: Cutting, Name: "Cutting", Description: "Fabric spreading and cutting", IsActive: true},
		{Code: "sewing", Name: "Sewing", Description: "Sewing lines", IsActive: true},
		{Code: "finishing", Name: "Finishing", Description: "Trimming, ironing and tagging", IsActive: true},
		{Code: "washing", Name: "Washing", Description: "Garment wash", IsActive: true},
		{Code: "packing", Name: "Packing", Description: "Folding and cartoning", IsActive: true},
		{Code: "quality", Name: "Quality", Description: "Inline and final inspection", IsActive: true},
	}
}

func ToDataModel(d *Department) *departmentDatamodel.Department {
	return &departmentDatamodel.Department{
		ID:          d.ID,
		Code:        d.Code,
		Name:        d.Name,
		Description: d.Description,
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func FromDataModel(d *departmentDatamodel.Department) *Department {
	return &Department{
		ID:          d.ID,
		Code:        d.Code,
		Name:        d.Name,
		Description: d.Description,
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
