package department

import (
	"github.com/frahmantamala/garment-erp/internal"
	"github.com/frahmantamala/garment-erp/internal/core/common/validation"
)

type CreateDepartmentDTO struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (d CreateDepartmentDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("code", NormalizeCode(d.Code)).
		Required().
		Custom(func(value interface{}) *internal.AppError {
			code, _ := value.(string)
			if code != "" && !codePattern.MatchString(code) {
				return internal.NewValidationFieldError("code", "code must be 2-32 lowercase letters, digits or underscores", internal.ErrCodeInvalidDepartment)
			}
			return nil
		})
	v.Field("name", d.Name).Required().MaxLength(100)
	v.Field("description", d.Description).MaxLength(500)
	return v.Err()
}

type DepartmentsResponse struct {
	Departments []*Department `json:"departments"`
}
