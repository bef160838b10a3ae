package production

import (
	"errors"
	"math"
	"time"

	"github.com/frahmantamala/garment-erp/internal"
	productionDatamodel "github.com/frahmantamala/garment-erp/internal/core/datamodel/production"
	"github.com/frahmantamala/garment-erp/internal/department"
	"github.com/frahmantamala/garment-erp/internal/rbac"
)

const DateLayout = "2006-01-02"

type Entry struct {
	ID             int64     `json:"id"`
	Date           string    `json:"date"`
	DepartmentCode string    `json:"department"`
	Line           string    `json:"line,omitempty"`
	Style          string    `json:"style,omitempty"`
	OrderNumber    string    `json:"order_number,omitempty"`
	TargetQty      int64     `json:"target_qty"`
	ProducedQty    int64     `json:"produced_qty"`
	RejectedQty    int64     `json:"rejected_qty"`
	Efficiency     float64   `json:"efficiency"`
	RejectRate     float64   `json:"reject_rate"`
	Remarks        string    `json:"remarks,omitempty"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Filter struct {
	From               *time.Time
	To                 *time.Time
	Department         string
	ExcludeDepartments []string
	Limit              int
	Offset             int
}

type EntryList struct {
	Entries []*Entry `json:"entries"`
	Total   int64    `json:"total"`
	Limit   int      `json:"limit"`
	Offset  int      `json:"offset"`
}

type Action int

const (
	ActionCreate Action = iota
	ActionRead
	ActionUpdate
	ActionDelete
)

// PermissionFor maps an action on a department's entries to the flag that
// guards it. Cutting has its own family; every other department shares the
// production family.
func PermissionFor(departmentCode string, action Action) rbac.Permission {
	if department.NormalizeCode(departmentCode) == department.Cutting {
		switch action {
		case ActionCreate:
			return rbac.CreateCutting
		case ActionUpdate:
			return rbac.UpdateCutting
		case ActionDelete:
			return rbac.DeleteCutting
		default:
			return rbac.ReadCutting
		}
	}
	switch action {
	case ActionCreate:
		return rbac.CreateProduction
	case ActionUpdate:
		return rbac.UpdateProduction
	case ActionDelete:
		return rbac.DeleteProduction
	default:
		return rbac.ReadProduction
	}
}

// Efficiency is produced over target as a percentage, 0 without a target.
func Efficiency(produced, target int64) float64 {
	if target <= 0 {
		return 0
	}
	return round2(float64(produced) / float64(target) * 100)
}

// RejectRate is rejected over produced as a percentage, 0 when nothing was produced.
func RejectRate(rejected, produced int64) float64 {
	if produced <= 0 {
		return 0
	}
	return round2(float64(rejected) / float64(produced) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

var ErrNotFound = errors.New("production entry not found")

var (
	ErrEntryNotFound     = internal.NewNotFoundError("production entry not found", internal.ErrCodeProductionEntryNotFound)
	ErrForbidden         = internal.ErrInsufficientPermissions
	ErrInvalidDepartment = internal.NewValidationError("department does not exist or is inactive", internal.ErrCodeInvalidDepartment)
)

func ToDataModel(e *Entry, date time.Time) *productionDatamodel.Entry {
	return &productionDatamodel.Entry{
		ID:             e.ID,
		EntryDate:      date,
		DepartmentCode: e.DepartmentCode,
		Line:           e.Line,
		Style:          e.Style,
		OrderNumber:    e.OrderNumber,
		TargetQty:      e.TargetQty,
		ProducedQty:    e.ProducedQty,
		RejectedQty:    e.RejectedQty,
		Remarks:        e.Remarks,
		CreatedBy:      e.CreatedBy,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func FromDataModel(e *productionDatamodel.Entry) *Entry {
	return &Entry{
		ID:             e.ID,
		Date:           e.EntryDate.UTC().Format(DateLayout),
		DepartmentCode: e.DepartmentCode,
		Line:           e.Line,
		Style:          e.Style,
		OrderNumber:    e.OrderNumber,
		TargetQty:      e.TargetQty,
		ProducedQty:    e.ProducedQty,
		RejectedQty:    e.RejectedQty,
		Efficiency:     Efficiency(e.ProducedQty, e.TargetQty),
		RejectRate:     RejectRate(e.RejectedQty, e.ProducedQty),
		Remarks:        e.Remarks,
		CreatedBy:      e.CreatedBy,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func FromDataModelSlice(entries []*productionDatamodel.Entry) []*Entry {
	result := make([]*Entry, len(entries))
	for i, e := range entries {
		result[i] = FromDataModel(e)
	}
	return result
}
