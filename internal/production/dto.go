package production

import (
	"time"

	"github.com/frahmantamala/garment-erp/internal"
	"github.com/frahmantamala/garment-erp/internal/core/common/validation"
)

type CreateEntryDTO struct {
	Date        string `json:"date"`
	Department  string `json:"department"`
	Line        string `json:"line,omitempty"`
	Style       string `json:"style,omitempty"`
	OrderNumber string `json:"order_number,omitempty"`
	TargetQty   int64  `json:"target_qty"`
	ProducedQty int64  `json:"produced_qty"`
	RejectedQty int64  `json:"rejected_qty"`
	Remarks     string `json:"remarks,omitempty"`
}

// Validate checks the request shape. now bounds the entry date.
func (d CreateEntryDTO) Validate(now time.Time) (time.Time, error) {
	date, dateErr := ParseDate(d.Date)

	v := validation.NewValidator()
	v.Field("department", d.Department).Required()
	v.Field("line", d.Line).MaxLength(64)
	v.Field("style", d.Style).MaxLength(128)
	v.Field("order_number", d.OrderNumber).MaxLength(64)
	v.Field("remarks", d.Remarks).MaxLength(1000)
	quantityRules(v, d.TargetQty, d.ProducedQty, d.RejectedQty)
	if dateErr != nil {
		v.Field("date", d.Date).Custom(func(interface{}) *internal.AppError { return dateErr })
	} else {
		v.Field("date", date).NotAfter(endOfDay(now))
	}
	return date, v.Err()
}

// UpdateEntryDTO changes only the fields that are present.
type UpdateEntryDTO struct {
	Date        *string `json:"date,omitempty"`
	Department  *string `json:"department,omitempty"`
	Line        *string `json:"line,omitempty"`
	Style       *string `json:"style,omitempty"`
	OrderNumber *string `json:"order_number,omitempty"`
	TargetQty   *int64  `json:"target_qty,omitempty"`
	ProducedQty *int64  `json:"produced_qty,omitempty"`
	RejectedQty *int64  `json:"rejected_qty,omitempty"`
	Remarks     *string `json:"remarks,omitempty"`
}

// ParseDate reads a YYYY-MM-DD date as UTC midnight.
func ParseDate(raw string) (time.Time, *internal.AppError) {
	if raw == "" {
		return time.Time{}, internal.NewValidationFieldError("date", "date is required", internal.ErrCodeValidationFailed)
	}
	t, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, internal.NewValidationFieldError("date", "date must be formatted as YYYY-MM-DD", internal.ErrCodeInvalidDate)
	}
	return t, nil
}

func quantityRules(v *validation.ValidationBuilder, target, produced, rejected int64) {
	v.Field("target_qty", target).MinInt(0, internal.ErrCodeInvalidQuantity)
	v.Field("produced_qty", produced).MinInt(0, internal.ErrCodeInvalidQuantity)
	v.Field("rejected_qty", rejected).
		MinInt(0, internal.ErrCodeInvalidQuantity).
		MaxInt(max(produced, 0), internal.ErrCodeInvalidQuantity)
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, 0, time.UTC)
}
